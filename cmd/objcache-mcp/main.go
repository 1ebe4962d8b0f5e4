package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/objcache-mcp/internal/cache"
	"github.com/leonardcser/objcache-mcp/internal/config"
	"github.com/leonardcser/objcache-mcp/internal/logger"
	tools "github.com/leonardcser/objcache-mcp/internal/tools"
	web "github.com/leonardcser/objcache-mcp/internal/web"
)

const daemonBinary = "objcache-daemon"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting object cache MCP server")

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		panic(err)
	}

	// Connect to cache daemon; start it if needed, then connect.
	logger.Infof("Attempting to connect to cache daemon at %s", cfg.Socket)
	client, err := connectCache(cfg.Socket)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		} else {
			logger.Infof("Cache daemon started successfully")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if c2, err2 := connectCache(cfg.Socket); err2 == nil {
				client = c2
				err = nil
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
			panic(err)
		}
	}
	logger.Infof("Successfully connected to cache daemon")

	s := server.NewMCPServer(
		"Object Cache MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	idParam := tools.WithKey("id", "Record id: a string, or an integer for numeric keys")
	dataParam := mcp.WithString("data", mcp.Required(), mcp.Description(`JSON document to store. Embed binary data as {"$binary": "<base64>"}`))
	ttlParam := mcp.WithNumber("ttl_seconds", mcp.Description("Time to live in seconds; omit for no expiry"))
	metaParam := mcp.WithString("metadata", mcp.Description("JSON object of string tags"))

	s.AddTool(mcp.NewTool("cache-add",
		mcp.WithDescription(multiline(
			"Stores a new record in the local object cache",
			"\nUsage notes:",
			"- Fails if a live record with the same id exists; use cache-update instead",
			"- Oversized images are scaled down and re-encoded to fit the size quota",
			"- Oversized non-image binaries are rejected",
		)),
		idParam, dataParam, ttlParam, metaParam,
	), tools.AddHandler(client))

	s.AddTool(mcp.NewTool("cache-get",
		mcp.WithDescription("Returns a record by id. Expired records are reported as missing and removed."),
		idParam,
	), tools.GetHandler(client))

	s.AddTool(mcp.NewTool("cache-list",
		mcp.WithDescription("Lists every live record. Expired records found on the way are removed."),
	), tools.ListHandler(client))

	s.AddTool(mcp.NewTool("cache-update",
		mcp.WithDescription(multiline(
			"Merges top-level fields into an existing record",
			"\nUsage notes:",
			"- Nested objects are replaced, not merged",
			"- ttl_seconds resets the expiry; otherwise the current one is kept",
			"- metadata tags are merged into the existing tags",
		)),
		idParam, dataParam, ttlParam, metaParam,
	), tools.UpdateHandler(client))

	s.AddTool(mcp.NewTool("cache-delete",
		mcp.WithDescription("Deletes a record. Deleting a missing id succeeds."),
		idParam,
	), tools.DeleteHandler(client))

	s.AddTool(mcp.NewTool("cache-clear",
		mcp.WithDescription("Deletes every record in the cache."),
	), tools.ClearHandler(client))

	s.AddTool(mcp.NewTool("cache-cleanup",
		mcp.WithDescription("Deletes all expired records and reports how many were removed."),
	), tools.CleanupHandler(client))

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports item count, total size and expired records awaiting cleanup."),
	), tools.StatsHandler(client))

	s.AddTool(mcp.NewTool("cache-snapshot",
		mcp.WithDescription(multiline(
			"Fetches a web page and stores it as a record",
			"\nFunctionality:",
			"- Stores title, description, Markdown text and links",
			"- Embeds the page's preview image (og:image), compressed to fit the quota",
			"- The record id defaults to the URL; an existing snapshot is refreshed",
			"- Snapshots expire after "+cfg.SnapshotTTL.String()+" unless ttl_seconds is given",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The page URL, http:// or https://")),
		mcp.WithString("id", mcp.Description("Record id; defaults to the URL")),
		ttlParam, metaParam,
	), tools.SnapshotHandler(client, web.NewSnapshotter(), cfg.SnapshotTTL))
	logger.Infof("Registered cache tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func connectCache(sock string) (*cache.Client, error) {
	client := cache.NewClient(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func startCacheDaemon() error {
	// 1) Try daemon binary next to this server executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}
	// 2) Try PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return spawn(path)
	}
	// 3) Try local binary in current working directory (best-effort)
	if _, err := os.Stat("./" + daemonBinary); err == nil {
		return spawn("./" + daemonBinary)
	}
	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}
