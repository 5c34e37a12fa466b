package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bdobrica/Sumire/common/environment"
	"github.com/bdobrica/Sumire/common/version"
	"github.com/bdobrica/Sumire/internal/sumire/app"
	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/matrix"
)

func main() {
	fmt.Printf("Sumire Settings Skill\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if environment.BoolOr("SUMIRE_DEBUG", false) {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	sumire, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Sumire: %v\n", err)
		os.Exit(1)
	}
	defer sumire.Stop()

	if err := sumire.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Sumire: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from environment variables.
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", "./sumire.db"),
		ProfileDir:   environment.StringOr("PROFILE_DIR", ""),
		Matrix: matrix.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			Rooms:       environment.StringSliceOr("MATRIX_ROOMS", nil),
		},
		DefaultLang:    environment.StringOr("SUMIRE_LANG", "en-us"),
		ConfirmTimeout: environment.DurationOr("CONFIRM_TIMEOUT", confirm.DefaultTTL),
		ExpiryNotice:   environment.BoolOr("CONFIRM_EXPIRY_NOTICE", false),
		GeocoderURL:    environment.StringOr("GEOCODER_URL", ""),
		EventsRoom:     environment.StringOr("EVENTS_ROOM", ""),
		AllowedSenders: environment.StringSliceOr("ALLOWED_SENDERS", nil),
	}, nil
}
