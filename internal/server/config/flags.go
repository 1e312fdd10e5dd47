package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-m string   temp directory for payload downloads
//	-v string   hvif2png-style rasterizer tool path
//	-o string   PNG optimizer tool path ("" disables optimization)
//	-w int      payload transfer timeout, seconds
//	-n int      rendered icon cache entry bound
//	-l int      rendered icon cache TTL, minutes
//	-u string   S3 access key
//	-p string   S3 secret key
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-v", "-o", "-w", "-n", "-l", "-u", "-p", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TempDir, "m", config.TempDir, "temp directory for payload downloads")
	fs.StringVar(&config.HvifToolPath, "v", config.HvifToolPath, "hvif rasterizer tool path")
	fs.StringVar(&config.PngOptimizerPath, "o", config.PngOptimizerPath, "png optimizer tool path")

	transferTimeout := fs.Int("w", int(config.TransferTimeout.Seconds()), "transfer_timeout (in seconds)")
	fs.IntVar(&config.IconCacheEntries, "n", config.IconCacheEntries, "icon cache entry bound")
	iconCacheTTL := fs.Int("l", int(config.IconCacheTTL.Minutes()), "icon_cache_ttl (in minutes)")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TransferTimeout = time.Duration(*transferTimeout) * time.Second
	config.IconCacheTTL = time.Duration(*iconCacheTTL) * time.Minute
}
