// Package config provides configuration parsing for vango-stream projects.
//
// The configuration is stored in vango-stream.json at the project root.
// Missing fields take defaults; invalid values are reported as
// *errors.VangoError with a code from the E1xx range.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "server": {
//	    "host": "localhost",
//	    "port": 8080,
//	    "shutdownTimeout": "10s"
//	  },
//	  "stream": {
//	    "mode": "streaming",
//	    "timeout": "30s",
//	    "document": true,
//	    "title": "Shop"
//	  },
//	  "archive": {
//	    "backend": "s3",
//	    "bucket": "pages",
//	    "region": "eu-west-1"
//	  },
//	  "metrics": { "enabled": true, "path": "/metrics" },
//	  "tracing": { "enabled": true },
//	  "log": { "level": "debug", "format": "json" }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
