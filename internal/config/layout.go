package config

import (
	"fmt"
	"strings"
	"time"
)

// LayoutConfig describes what the form looks like: the field groups filled
// in order, the image upload and the submit control.
type LayoutConfig struct {
	Groups   []GroupConfig  `yaml:"groups"`
	Upload   UploadConfig   `yaml:"upload"`
	Submit   SubmitConfig   `yaml:"submit"`
	Dropdown DropdownConfig `yaml:"dropdown"`
}

// GroupConfig is a run of fields reachable from one scroll position.
type GroupConfig struct {
	Name   string        `yaml:"name"`
	Scroll float64       `yaml:"scroll"` // wheel amount before the group; negative scrolls down
	Settle string        `yaml:"settle"` // pause after scrolling
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig binds an anchor image to a spreadsheet column.
type FieldConfig struct {
	Anchor   string `yaml:"anchor"`
	Column   string `yaml:"column"`
	Dropdown bool   `yaml:"dropdown,omitempty"`
}

// UploadConfig configures the image upload step.
type UploadConfig struct {
	Anchor     string `yaml:"anchor"`
	Column     string `yaml:"column"`
	DialogWait string `yaml:"dialog_wait"` // how long to wait for the file chooser
	Settle     string `yaml:"settle"`      // pause after the file is chosen
	PauseAfter string `yaml:"pause_after"`
}

// SubmitConfig configures the submit step.
type SubmitConfig struct {
	Anchor       string  `yaml:"anchor"`
	Scroll       float64 `yaml:"scroll"`
	ScrollSettle string  `yaml:"scroll_settle"`
	PauseAfter   string  `yaml:"pause_after"`
}

// DropdownConfig configures the blind key sequence used on dropdown fields.
// Keys are key names (Enter, ArrowDown, ...) or "pause:<duration>".
type DropdownConfig struct {
	Match []string `yaml:"match"` // anchor substrings that mark a dropdown
	Keys  []string `yaml:"keys"`
}

// DefaultLayoutConfig returns the layout of the stock contact form.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Groups: []GroupConfig{
			{
				Name: "contact",
				Fields: []FieldConfig{
					{Anchor: "first_name.png", Column: "First Name"},
					{Anchor: "last_name.png", Column: "Last Name"},
					{Anchor: "phone.png", Column: "Mobile"},
					{Anchor: "email.png", Column: "Email"},
					{Anchor: "street_address.png", Column: "Address"},
				},
			},
			{
				Name:   "address",
				Scroll: -1000,
				Settle: "1s",
				Fields: []FieldConfig{
					{Anchor: "city.png", Column: "City"},
					{Anchor: "state.png", Column: "State"},
					{Anchor: "postal.png", Column: "Postal Code"},
					{Anchor: "country.png", Column: "Country", Dropdown: true},
					{Anchor: "address_2.png", Column: "Address Line 2"},
				},
			},
		},
		Upload: UploadConfig{
			Anchor:     "image.png",
			Column:     "image url:",
			DialogWait: "4s",
			Settle:     "1s",
			PauseAfter: "2500ms",
		},
		Submit: SubmitConfig{
			Anchor:       "submit.png",
			Scroll:       -500,
			ScrollSettle: "1s",
			PauseAfter:   "3s",
		},
		Dropdown: DropdownConfig{
			Match: []string{"country"},
			Keys:  []string{"ArrowDown", "pause:200ms", "Enter", "ArrowDown", "ArrowDown", "ArrowDown", "Enter"},
		},
	}
}

// GetSettle returns the pause after the group's scroll.
func (g GroupConfig) GetSettle() time.Duration {
	return parseDuration(g.Settle, time.Second)
}

// GetDialogWait returns how long to wait for the upload file chooser.
func (u UploadConfig) GetDialogWait() time.Duration {
	return parseDuration(u.DialogWait, 4*time.Second)
}

// GetSettle returns the pause after choosing the upload file.
func (u UploadConfig) GetSettle() time.Duration {
	return parseDuration(u.Settle, time.Second)
}

// GetPauseAfter returns the pause after the upload step.
func (u UploadConfig) GetPauseAfter() time.Duration {
	return parseDuration(u.PauseAfter, 2500*time.Millisecond)
}

// GetScrollSettle returns the pause after the pre-submit scroll.
func (s SubmitConfig) GetScrollSettle() time.Duration {
	return parseDuration(s.ScrollSettle, time.Second)
}

// GetPauseAfter returns the pause after clicking submit.
func (s SubmitConfig) GetPauseAfter() time.Duration {
	return parseDuration(s.PauseAfter, 3*time.Second)
}

// Columns returns every spreadsheet column the layout reads.
func (l LayoutConfig) Columns() []string {
	var cols []string
	for _, g := range l.Groups {
		for _, f := range g.Fields {
			cols = append(cols, f.Column)
		}
	}
	if l.Upload.Column != "" {
		cols = append(cols, l.Upload.Column)
	}
	return cols
}

// Validate checks that every field names an anchor and a column.
func (l LayoutConfig) Validate() error {
	if len(l.Groups) == 0 {
		return fmt.Errorf("layout has no field groups")
	}
	for i, g := range l.Groups {
		for j, f := range g.Fields {
			if strings.TrimSpace(f.Anchor) == "" || strings.TrimSpace(f.Column) == "" {
				return fmt.Errorf("layout group %d (%s) field %d: anchor and column are required", i, g.Name, j)
			}
		}
	}
	if strings.TrimSpace(l.Submit.Anchor) == "" {
		return fmt.Errorf("layout submit anchor is required")
	}
	if l.Upload.Anchor != "" && l.Upload.Column == "" {
		return fmt.Errorf("layout upload anchor %s has no column", l.Upload.Anchor)
	}
	for _, k := range l.Dropdown.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("layout dropdown keys contain an empty entry")
		}
	}
	return nil
}
