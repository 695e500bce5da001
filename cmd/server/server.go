package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/marben/irpc"
	"github.com/spf13/cobra"

	mandel "github.com/marben/gray_mandel"
	"github.com/marben/gray_mandel/internal/output"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Split a Mandelbrot image into tiles and let workers render them",
		Long: `The server only coordinates and distributes work. Tiles are rendered by
workers connecting over TCP or websocket, and by --local-workers goroutines.
When all tiles are done the image is written to --out and the server exits.

Negative coordinates must be attached with '=': --upper-left=-1.2,0.35`,
		Args:          cobra.NoArgs,
		RunE:          runServer,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("out", "o", "mandel.png", "Output image (.png, .pgm or .zst)")
	cmd.Flags().String("size", "1920x1080", "Image size in pixels")
	cmd.Flags().String("region", "seahorse-valley", "Predefined region: "+regionNames())
	cmd.Flags().String("upper-left", "", "Upper left corner, overrides --region")
	cmd.Flags().String("lower-right", "", "Lower right corner, overrides --region")
	cmd.Flags().Int("tile", 64, "Tile edge in pixels")
	cmd.Flags().String("tcp", ":8081", "TCP address for workers")
	cmd.Flags().String("http", ":8080", "HTTP address serving the /ws websocket endpoint")
	cmd.Flags().Int("local-workers", 0, "Goroutines rendering tiles inside the server")
	return cmd
}

func runServer(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	sizeStr, _ := cmd.Flags().GetString("size")
	bounds, err := mandel.ParseBounds(sizeStr)
	if err != nil {
		return fmt.Errorf("error parsing image dimensions %q: %w", sizeStr, err)
	}
	viewport, err := viewportFromFlags(cmd)
	if err != nil {
		return err
	}
	tileSize, _ := cmd.Flags().GetInt("tile")
	if tileSize <= 0 || tileSize > maxTileSize {
		return fmt.Errorf("tile size must be in 1..%d, got %d", maxTileSize, tileSize)
	}
	outPath, _ := cmd.Flags().GetString("out")
	tcpAddr, _ := cmd.Flags().GetString("tcp")
	httpAddr, _ := cmd.Flags().GetString("http")
	localWorkers, _ := cmd.Flags().GetInt("local-workers")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log.Printf("rendering %s of %s in %dx%d tiles", bounds, viewport, tileSize, tileSize)
	imgWorkScheduler := newImgWorkScheduler(bounds, viewport, tileSize)

	irpcServer := newIrpcServer(imgWorkScheduler)
	defer irpcServer.Close()

	// TCP
	tcpListener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}
	defer tcpListener.Close()
	log.Printf("tcp listening on %s", tcpListener.Addr())

	// WEBSOCKET
	websocketListener, httpServer := webServer(ctx, httpAddr)
	defer websocketListener.Close()

	httpErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("httpServer: %w", err)
		}
	}()

	// irpcServer can serve multiple listeners. In this case both tcp and websocket
	go serve(irpcServer, tcpListener)
	go serve(irpcServer, websocketListener)

	for range localWorkers {
		go func() {
			if err := imgWorkScheduler.addRenderer(mandel.TileRenderer{}); err != nil {
				log.Printf("local renderer: %v", err)
			}
		}()
	}

	log.Printf("mb server waiting for tcp and websocket workers")
	select {
	case <-imgWorkScheduler.done():
	case err := <-httpErr:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}

	img, err := imgWorkScheduler.GetImage()
	if err != nil {
		return fmt.Errorf("GetImage: %w", err)
	}
	if err := output.Write(outPath, img.Pix, bounds); err != nil {
		return fmt.Errorf("error writing image: %w", err)
	}
	log.Printf("fully rendered image saved to %q", outPath)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newIrpcServer plugs every connected worker into rendering of iws.
// Workers can also ask for the finished image through the ImgProvider service.
func newIrpcServer(iws *imgWorkScheduler) *irpc.Server {
	// irpc server with onConnect hook to plug workers into rendering
	irpcServer := irpc.NewServer(irpc.WithOnConnect(func(ep *irpc.Endpoint) {
		go func() {
			log.Printf("got connection from: %s", ep.RemoteAddr())

			// Each worker needs to provide us with mandel.Renderer so we can use it to render tiles of full image
			rendererIrpcClient, err := mandel.NewRendererIrpcClient(ep)
			if err != nil {
				log.Printf("err: new Rendering client: %v", err)
				ep.Close()
				return
			}

			if err := iws.addRenderer(rendererIrpcClient); err != nil {
				log.Printf("err: render on worker %q: %v", ep.RemoteAddr(), err)
				ep.Close()
				return
			}
		}()
	}))

	// ImgProvider is implemented by imgWorkScheduler, so workers can wait for the full image
	irpcServer.AddService(mandel.NewImgProviderIrpcService(iws))
	return irpcServer
}

func serve(s *irpc.Server, l net.Listener) {
	if err := s.Serve(l); !errors.Is(err, irpc.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		log.Printf("server.Serve %s: %v", l.Addr().Network(), err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("run: %+v", err)
	}
}
