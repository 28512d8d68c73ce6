// Package layout holds the presentation settings shared by every page.
package layout

import "fmt"

// MobileBreakpoint is the viewport width below which the layout is considered mobile.
const MobileBreakpoint = 1024

const (
	ContainerWide  = "wide"
	ContainerBoxed = "boxed"
)

// Config is the theme and hero container configuration.
type Config struct {
	Primary           string `yaml:"primary" json:"primary"`
	Surface           string `yaml:"surface" json:"surface"`
	DarkTheme         bool   `yaml:"dark_theme" json:"darkTheme"`
	HeroContainerType string `yaml:"hero_container_type" json:"heroContainerType"`
}

// Defaults returns the stock layout.
func Defaults() Config {
	return Config{
		Primary:           "teal",
		Surface:           "slate",
		DarkTheme:         false,
		HeroContainerType: ContainerWide,
	}
}

// Validate checks the hero container type and color names.
func (c Config) Validate() error {
	if c.HeroContainerType != ContainerWide && c.HeroContainerType != ContainerBoxed {
		return fmt.Errorf("hero_container_type must be %q or %q, got %q", ContainerWide, ContainerBoxed, c.HeroContainerType)
	}
	if c.Primary == "" || c.Surface == "" {
		return fmt.Errorf("primary and surface colors are required")
	}
	return nil
}

func (c Config) IsWide() bool {
	return c.HeroContainerType == ContainerWide
}

func (c Config) IsDarkTheme() bool {
	return c.DarkTheme
}

// IsMobile reports whether a viewport of the given width uses the mobile layout.
func IsMobile(width int) bool {
	return width < MobileBreakpoint
}
