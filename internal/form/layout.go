package form

import (
	"time"

	"formfill/internal/filler"
)

// Group is a run of fields filled from one scroll position.
type Group struct {
	Name string
	// Scroll is the wheel amount applied before the group; zero means no
	// scroll. Negative values scroll down.
	Scroll float64
	// Settle is the pause after scrolling.
	Settle time.Duration
	Fields []filler.Field
}

// UploadStep describes the image upload.
type UploadStep struct {
	Anchor     string
	Column     string
	PauseAfter time.Duration
}

// SubmitStep describes the final scroll and submit click.
type SubmitStep struct {
	Anchor       string
	Scroll       float64
	ScrollSettle time.Duration
	PauseAfter   time.Duration
}

// Layout is the fixed shape of the form.
type Layout struct {
	Groups []Group
	Upload UploadStep
	Submit SubmitStep
}

// DefaultLayout returns the layout of the stock contact form.
func DefaultLayout() Layout {
	return Layout{
		Groups: []Group{
			{
				Name: "contact",
				Fields: []filler.Field{
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
				Settle: time.Second,
				Fields: []filler.Field{
					{Anchor: "city.png", Column: "City"},
					{Anchor: "state.png", Column: "State"},
					{Anchor: "postal.png", Column: "Postal Code"},
					{Anchor: "country.png", Column: "Country", Dropdown: true},
					{Anchor: "address_2.png", Column: "Address Line 2"},
				},
			},
		},
		Upload: UploadStep{
			Anchor:     "image.png",
			Column:     "image url:",
			PauseAfter: 2500 * time.Millisecond,
		},
		Submit: SubmitStep{
			Anchor:       "submit.png",
			Scroll:       -500,
			ScrollSettle: time.Second,
			PauseAfter:   3 * time.Second,
		},
	}
}

// Fields returns every field in fill order.
func (l Layout) Fields() []filler.Field {
	var out []filler.Field
	for _, g := range l.Groups {
		out = append(out, g.Fields...)
	}
	return out
}

// Columns returns the spreadsheet columns the layout reads.
func (l Layout) Columns() []string {
	var out []string
	for _, f := range l.Fields() {
		out = append(out, f.Column)
	}
	if l.Upload.Anchor != "" && l.Upload.Column != "" {
		out = append(out, l.Upload.Column)
	}
	return out
}

// Anchors returns every anchor image the layout uses, without duplicates.
func (l Layout) Anchors() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(a string) {
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, f := range l.Fields() {
		add(f.Anchor)
	}
	add(l.Upload.Anchor)
	add(l.Submit.Anchor)
	return out
}
