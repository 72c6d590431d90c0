package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// loadEnv loads ENV_FILE, or env.windows/env.linux from the working
// directory, falling back to the repository root.
func loadEnv() {
	if p := os.Getenv("ENV_FILE"); p != "" {
		if err := godotenv.Overload(p); err != nil {
			log.WithField("component", "env").Warnf("load %s: %v", p, err)
			return
		}
		log.WithField("component", "env").Infof("loaded: %s", p)
		return
	}

	var candidates []string
	if runtime.GOOS == "windows" {
		candidates = []string{".env.windows", "env.windows"}
	} else {
		candidates = []string{".env.linux", "env.linux"}
	}

	for _, dir := range []string{".", ".."} {
		for _, p := range candidates {
			path := filepath.Join(dir, p)
			if fileExists(path) {
				_ = godotenv.Overload(path)
				log.WithField("component", "env").Infof("loaded: %s", path)
				return
			}
		}
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
