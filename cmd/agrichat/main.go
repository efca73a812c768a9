// Package main is the agrichat CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agrilab/agrichat/internal/config"
	"github.com/agrilab/agrichat/internal/extract"
	"github.com/agrilab/agrichat/internal/llm"
	"github.com/agrilab/agrichat/internal/rag"
	"github.com/agrilab/agrichat/internal/server"
	"github.com/agrilab/agrichat/internal/storage"
	"github.com/agrilab/agrichat/internal/vector"
	"github.com/agrilab/agrichat/internal/watcher"
	"github.com/agrilab/agrichat/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/agrichat/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("agrichat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`agrichat - document-grounded chat service

Usage:
  agrichat server [-config path] [-debug]     start the API server
  agrichat upload [-thread id] <file>         upload a document via the API
  agrichat ask -thread id <question>          ask a question via the API
  agrichat status                             show server statistics
  agrichat version                            print version
`)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	// .env is optional; the environment wins when both are set.
	_ = godotenv.Load()

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	index := vector.NewTFIDF(cfg.Storage.SnapshotPath, cfg.Retrieval.MaxFeatures, logger)
	defer index.Close()

	apiKey := os.Getenv("GEMINI_API_KEY")
	completer, err := llm.NewGemini(context.Background(), apiKey, cfg.LLM.Model, cfg.LLM.Timeout(), logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}
	defer completer.Close()

	svc := rag.NewService(store, index, extract.NewExtractor(), completer, rag.Options{
		TopK:           cfg.Retrieval.TopK,
		HistoryWindow:  cfg.Retrieval.HistoryWindow,
		MaxUploadBytes: cfg.Storage.UploadMaxBytes,
	}, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.NewWatcher(cfg.Watch.Directories, func(path string) {
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("watch read failed", zap.String("path", path), zap.Error(err))
				return
			}
			if _, err := svc.Upload(context.Background(), content, filepath.Base(path), ""); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(svc, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// apiBase resolves the server address from config for the client subcommands.
func apiBase(configPath string) string {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return "http://localhost:8000"
	}
	return fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	threadID := fs.String("thread", "", "thread to link the document to")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Println("Usage: agrichat upload [-thread id] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err == nil {
		_, err = fw.Write(content)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		fmt.Printf("Failed to build request: %v\n", err)
		os.Exit(1)
	}

	url := apiBase(*configPath) + "/upload"
	if *threadID != "" {
		url += "/" + *threadID
	}
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	threadID := fs.String("thread", "", "thread id (required)")
	_ = fs.Parse(os.Args[2:])
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *threadID == "" || question == "" {
		fmt.Println("Usage: agrichat ask -thread id <question>")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]string{"message": question})
	url := fmt.Sprintf("%s/chat/%s", apiBase(*configPath), *threadID)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var body struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Printf("Invalid response: %v\n", err)
		os.Exit(1)
	}
	if body.Error != "" {
		fmt.Printf("Error: %s\n", body.Error)
		os.Exit(1)
	}
	fmt.Println(body.Response)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(apiBase(*configPath) + "/stats")
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
