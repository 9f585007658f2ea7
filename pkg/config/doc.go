// Package config loads scrapeguard settings from defaults, a YAML file, a
// .env file, environment variables and command line flags, in that order of
// increasing precedence.
//
//	cfg, err := config.Load("", map[string]interface{}{
//	    "data-dir":  "/var/lib/scrapeguard",
//	    "log-level": "debug",
//	})
//
// Keys may be written as "hex:<hex>", "base64:<base64>" or as raw text:
//
//	export SCRAPEGUARD_ENCRYPTION_KEY1="hex:000102030405060708090a0b0c0d0e0f"
//	export SCRAPEGUARD_ENCRYPTION_KEY2="base64:..."
//	export SCRAPEGUARD_ENCRYPTION_KEY3="32-byte-raw-text-key-goes-here!!"
//
// The unprefixed ENCRYPTION_KEY1..3, BASE_URL, PUB_KEY and SEC_KEY names are
// still honoured when the SCRAPEGUARD_ variants are unset.
package config
