package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/geo"
	"github.com/wanderlens/arsync/internal/registry"
	"github.com/wanderlens/arsync/pkg/core"
)

var validateCmd = &cobra.Command{
	Use:   "validate [markers-file]",
	Short: "Check the marker descriptors for consistency",
	Long: `Loads the marker file and reports duplicate names, markers without
content and invalid map locations or website URLs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetString("markersFile")
		if len(args) > 0 {
			path = args[0]
		}
		n, err := runValidate(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d markers are valid\n", path, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) (int, error) {
	descs, err := config.LoadMarkers(path)
	if err != nil {
		return 0, err
	}
	if _, err := registry.New(descs); err != nil {
		return 0, err
	}
	if err := validateMarkers(descs); err != nil {
		return 0, err
	}
	return len(descs), nil
}

// validateMarkers reports every problem found, joined.
func validateMarkers(descs []core.MarkerDescriptor) error {
	var errs []error
	for _, d := range descs {
		if d.Content.Empty() {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, core.ErrMissingContent))
		}
		if d.Map != nil {
			if err := geo.ValidateLatLon(d.Map.Lat, d.Map.Lon); err != nil {
				errs = append(errs, fmt.Errorf("%s: map: %w", d.Name, err))
			}
		}
		if d.WebsiteURL != "" {
			if err := validateWebsite(d.WebsiteURL); err != nil {
				errs = append(errs, fmt.Errorf("%s: website: %w", d.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func validateWebsite(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
