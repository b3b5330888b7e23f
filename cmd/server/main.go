package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/BryanLim0214/PicPrompt/internal/config"
	"github.com/BryanLim0214/PicPrompt/internal/game"
	"github.com/BryanLim0214/PicPrompt/internal/imagegen"
	"github.com/BryanLim0214/PicPrompt/internal/imagegen/google"
	"github.com/BryanLim0214/PicPrompt/internal/imagegen/openai"
	"github.com/BryanLim0214/PicPrompt/internal/ws"
	staticserver "github.com/BryanLim0214/PicPrompt/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`PicPrompt - AI image prompt party game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  PUBLIC_URL          Public base URL for join links and QR codes
  IMAGE_PROVIDER      Image provider: "google" or "openai" (default: google)
  IMAGE_MODEL         Image model to use (default: imagen-3.0-generate-002)
  GOOGLE_API_KEY      Google API key (required for the google provider)
  GOOGLE_BASE_URL     Custom Generative Language API base URL (optional)
  OPENAI_API_KEY      OpenAI API key (required for the openai provider)
  OPENAI_BASE_URL     Custom OpenAI API base URL (optional)
  EXPORT_ENABLED      Export round results to file (default: true)
  EXPORT_FILE         Path to export results (default: ./picprompt-results.txt)

Visit http://localhost:8080 after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("PicPrompt %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Socket server + room manager
	rm := game.NewRoomManager()
	sock := ws.New(rm, cfg)
	gp := google.New(cfg.GoogleAPIKey, cfg.GoogleBaseURL, cfg.ImageModel)
	op := openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, "")
	sock.SetProvider(gp)
	sock.SetProviders(map[string]imagegen.Provider{"google": gp, "openai": op})
	io := sock.Mount(r)
	defer io.Close()

	// Room existence check for the join screen
	r.GET("/api/room/:code", func(c *gin.Context) {
		code := strings.ToUpper(c.Param("code"))
		if _, err := rm.Get(code); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomCode": code})
	})

	// QR code for the join link
	r.GET("/api/room/:code/qr", func(c *gin.Context) {
		code := strings.ToUpper(c.Param("code"))
		if _, err := rm.Get(code); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		base := cfg.PublicURL
		if base == "" {
			scheme := "http"
			if c.Request.TLS != nil {
				scheme = "https"
			}
			if proto := c.Request.Header.Get("X-Forwarded-Proto"); proto != "" {
				scheme = proto
			}
			base = scheme + "://" + c.Request.Host
		}
		url := strings.TrimRight(base, "/") + "/join/" + code
		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	// Serve frontend (if embedded build is present) for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
