package theme

import (
	"image/color"
	"reflect"
)

// Theme defines the colours used by the editor window and box overlays.
type Theme struct {
	Name string

	// Window
	Background color.RGBA // Behind the image when the window is larger
	Foreground color.RGBA

	// Status bar
	StatusBackground  color.RGBA
	StatusText        color.RGBA
	MessageBackground color.RGBA

	// Boxes
	Stroke         color.RGBA // Committed boxes
	StrokeSelected color.RGBA // Highlighted selected box
	Draft          color.RGBA // Box being drawn or resized
	HandleFill     color.RGBA
	HandleBorder   color.RGBA

	// Canvas shown before the base image has loaded
	CheckerLight color.RGBA
	CheckerDark  color.RGBA
}

// Default returns the built-in light theme. Box colours match the red/green
// pair of the web editor.
func Default() *Theme {
	return &Theme{
		Name:              "Default",
		Background:        color.RGBA{220, 220, 220, 255},
		Foreground:        color.RGBA{0, 0, 0, 255},
		StatusBackground:  color.RGBA{235, 235, 235, 255},
		StatusText:        color.RGBA{0, 0, 0, 255},
		MessageBackground: color.RGBA{255, 255, 255, 230},
		Stroke:            color.RGBA{255, 0, 0, 255},
		StrokeSelected:    color.RGBA{0, 255, 0, 255},
		Draft:             color.RGBA{255, 0, 0, 255},
		HandleFill:        color.RGBA{0, 255, 0, 255},
		HandleBorder:      color.RGBA{0, 255, 0, 255},
		CheckerLight:      color.RGBA{220, 220, 220, 255},
		CheckerDark:       color.RGBA{192, 192, 192, 255},
	}
}

// ColorFields lists the colour keys of a Theme in declaration order.
func ColorFields() []string {
	typ := reflect.TypeOf(Theme{})
	rgba := reflect.TypeOf(color.RGBA{})
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).Type == rgba {
			out = append(out, typ.Field(i).Name)
		}
	}
	return out
}

// Color returns the colour stored under key, matched case-insensitively.
func (t *Theme) Color(key string) (color.RGBA, bool) {
	f := t.field(key)
	if !f.IsValid() {
		return color.RGBA{}, false
	}
	return f.Interface().(color.RGBA), true
}

// Set parses value and stores it under key. Unknown keys are ignored so that
// newer theme files still load.
func (t *Theme) Set(key, value string) error {
	if equalFold(key, "Name") {
		t.Name = value
		return nil
	}
	f := t.field(key)
	if !f.IsValid() {
		return nil
	}
	col, err := ParseColor(value)
	if err != nil {
		return err
	}
	f.Set(reflect.ValueOf(col))
	return nil
}

func (t *Theme) field(key string) reflect.Value {
	val := reflect.ValueOf(t).Elem()
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if equalFold(typ.Field(i).Name, key) && typ.Field(i).Type == reflect.TypeOf(color.RGBA{}) {
			return val.Field(i)
		}
	}
	return reflect.Value{}
}
