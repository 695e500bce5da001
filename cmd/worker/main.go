// worker is a remote renderer for the tile server.
// It connects to the server and renders tiles on our CPU until the server has none left.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"

	"github.com/coder/websocket"
	"github.com/marben/irpc"
	"github.com/spf13/cobra"

	mandel "github.com/marben/gray_mandel"
	"github.com/marben/gray_mandel/internal/output"
)

// maxImageMessage allows images up to 16384x16384 over websocket
const maxImageMessage = 16384*16384 + 1<<10

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Render Mandelbrot tiles for a tile server",
		Example: `  worker --server localhost:8081
  worker --server ws://localhost:8080/ws --save mandel.png`,
		Args:          cobra.NoArgs,
		RunE:          runWorker,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("server", "s", "localhost:8081", "Server address: host:port for TCP or a ws:// URL")
	cmd.Flags().BoolP("quiet", "q", false, "Do not log rendered tiles")
	cmd.Flags().String("save", "", "Wait for the fully rendered image and save it (.png, .pgm or .zst)")
	return cmd
}

func runWorker(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	addr, _ := cmd.Flags().GetString("server")
	quiet, _ := cmd.Flags().GetBool("quiet")
	save, _ := cmd.Flags().GetString("save")
	ctx := cmd.Context()

	// Step 1: Connect to the server
	log.Printf("connecting to %s", addr)
	conn, err := dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	// Step 2: Create the renderer service, which the server calls to render tiles using our CPU
	renderer := mandel.TileRenderer{}
	if !quiet {
		renderer.OnTileRender = func(tile image.Rectangle) { log.Printf("rendering tile: %s", tile) }
	}
	rendererService := mandel.NewRendererIrpcService(renderer)
	ep := irpc.NewEndpoint(conn, irpc.WithEndpointServices(rendererService))
	defer ep.Close()

	// interrupt closes the endpoint, which fails any pending call
	stop := context.AfterFunc(ctx, func() { ep.Close() })
	defer stop()

	if save != "" {
		return saveImage(ctx, ep, save)
	}

	// Step 3: Serve tiles until the server hangs up
	<-ep.Context().Done()
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	if cause := context.Cause(ep.Context()); !errors.Is(cause, irpc.ErrEndpointClosedByCounterpart) {
		return fmt.Errorf("serving tiles: %w", cause)
	}
	log.Printf("server has no more tiles")
	return nil
}

// saveImage asks the server for the full image, while tiles keep being served on ep
func saveImage(ctx context.Context, ep *irpc.Endpoint, filename string) error {
	client, err := mandel.NewImgProviderIrpcClient(ep)
	if err != nil {
		return fmt.Errorf("failed to create ImgProvider client: %w", err)
	}

	log.Printf("requesting fully rendered image from server")
	img, err := client.GetImage()
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return fmt.Errorf("client.GetImage: %w", err)
	}

	bounds := mandel.Bounds{Width: img.Rect.Dx(), Height: img.Rect.Dy()}
	if img.Stride != bounds.Width {
		return fmt.Errorf("image %s with stride %d is not packed", img.Rect, img.Stride)
	}
	if err := output.Write(filename, img.Pix, bounds); err != nil {
		return fmt.Errorf("error writing image: %w", err)
	}
	log.Printf("fully rendered image saved to %q", filename)
	return nil
}

// dial connects over websocket for ws:// and wss:// addresses, over TCP otherwise
func dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		return net.Dial("tcp", addr)
	}

	c, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket.Dial: %w", err)
	}
	// the full image arrives in a single message
	c.SetReadLimit(maxImageMessage)
	return websocket.NetConn(ctx, c, websocket.MessageBinary), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
