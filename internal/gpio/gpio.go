// Package gpio writes digital levels to sysfs GPIO pins and bundles the
// windmill's relay pins behind semantic operations.
package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const DefaultSysfsRoot = "/sys/class/gpio"

const (
	Low  = 0
	High = 1
)

var (
	ErrBadLevel     = errors.New("gpio: level must be 0 or 1")
	ErrExportFailed = errors.New("gpio: failed to export pin")
)

// Pin is a digital output.
type Pin interface {
	Write(level int) error
}

// SysfsPin drives one exported sysfs GPIO line.
type SysfsPin struct {
	number    int
	valuePath string
}

// Export makes the pin available and configures it as an output. An empty
// root means DefaultSysfsRoot.
func Export(root string, number int) (*SysfsPin, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}
	pinDir := filepath.Join(root, fmt.Sprintf("gpio%d", number))

	if _, err := os.Stat(pinDir); err != nil {
		exportPath := filepath.Join(root, "export")
		if err := os.WriteFile(exportPath, []byte(strconv.Itoa(number)), 0o644); err != nil {
			return nil, fmt.Errorf("%w: pin %d: %v", ErrExportFailed, number, err)
		}
		if _, err := os.Stat(pinDir); err != nil {
			return nil, fmt.Errorf("%w: pin %d controls absent after export", ErrExportFailed, number)
		}
	}

	if err := os.WriteFile(filepath.Join(pinDir, "direction"), []byte("out"), 0o644); err != nil {
		return nil, fmt.Errorf("gpio: set pin %d direction: %w", number, err)
	}

	return &SysfsPin{
		number:    number,
		valuePath: filepath.Join(pinDir, "value"),
	}, nil
}

func (p *SysfsPin) Write(level int) error {
	if level != Low && level != High {
		return fmt.Errorf("%w: %d", ErrBadLevel, level)
	}
	if err := os.WriteFile(p.valuePath, []byte(strconv.Itoa(level)), 0o644); err != nil {
		return fmt.Errorf("gpio: write pin %d: %w", p.number, err)
	}
	return nil
}
