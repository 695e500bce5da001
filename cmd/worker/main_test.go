package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marben/irpc"

	mandel "github.com/marben/gray_mandel"
)

// startWorker runs the worker command against a fresh listener and returns the accepted connection
func startWorker(t *testing.T, ctx context.Context, args ...string) (net.Conn, <-chan error) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--server", l.Addr().String(), "--quiet"}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	cmdErr := make(chan error, 1)
	go func() {
		cmdErr <- cmd.ExecuteContext(ctx)
	}()

	conn, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return conn, cmdErr
}

func waitWorker(t *testing.T, cmdErr <-chan error) error {
	t.Helper()
	select {
	case err := <-cmdErr:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
		return nil
	}
}

func TestWorkerServesTiles(t *testing.T) {
	conn, cmdErr := startWorker(t, context.Background())

	ep := irpc.NewEndpoint(conn)
	client, err := mandel.NewRendererIrpcClient(ep)
	if err != nil {
		t.Fatalf("NewRendererIrpcClient: %v", err)
	}

	r := mandel.SeahorseValley.Region()
	tile := image.Rect(10, 5, 30, 25)
	got, err := client.RenderTile(r, tile, 64, 32)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	want, _ := mandel.TileRenderer{}.RenderTile(r, tile, 64, 32)
	if got.Rect != tile || !bytes.Equal(got.Pix, want.Pix) {
		t.Error("remote tile differs from local render")
	}

	// tiles outside of the image are refused, the worker keeps serving
	if _, err := client.RenderTile(r, image.Rect(60, 0, 70, 10), 64, 32); err == nil {
		t.Error("expected error for tile outside of image")
	}

	ep.Close()
	if err := waitWorker(t, cmdErr); err != nil {
		t.Errorf("worker: %v", err)
	}
}

type fixedImage struct {
	img *image.Gray
}

func (f fixedImage) GetImage() (*image.Gray, error) {
	return f.img, nil
}

func TestWorkerSavesImage(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mandel.pgm")
	conn, cmdErr := startWorker(t, context.Background(), "--save", filename)

	img := image.NewGray(image.Rect(0, 0, 3, 2))
	copy(img.Pix, []byte{1, 2, 3, 4, 5, 6})
	ep := irpc.NewEndpoint(conn, irpc.WithEndpointServices(mandel.NewImgProviderIrpcService(fixedImage{img: img})))
	defer ep.Close()

	if err := waitWorker(t, cmdErr); err != nil {
		t.Fatalf("worker: %v", err)
	}

	got, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []byte("P5\n3 2\n255\n\x01\x02\x03\x04\x05\x06")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

type failingImage struct{}

func (failingImage) GetImage() (*image.Gray, error) {
	return nil, errors.New("render abandoned")
}

func TestWorkerSaveRemoteError(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mandel.png")
	conn, cmdErr := startWorker(t, context.Background(), "--save", filename)

	ep := irpc.NewEndpoint(conn, irpc.WithEndpointServices(mandel.NewImgProviderIrpcService(failingImage{})))
	defer ep.Close()

	err := waitWorker(t, cmdErr)
	if err == nil || !strings.Contains(err.Error(), "render abandoned") {
		t.Fatalf("expected remote error, got %v", err)
	}
	if _, err := os.Stat(filename); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image written despite error: %v", err)
	}
}

func TestWorkerInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn, cmdErr := startWorker(t, ctx)
	defer conn.Close()

	cancel()
	if err := waitWorker(t, cmdErr); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWorkerDialError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--server", addr})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
