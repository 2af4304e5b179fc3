package source

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Resolution is a named camera frame size.
type Resolution struct {
	Name        string `json:"name"`
	AspectRatio string `json:"aspectRatio"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/1e4) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions are the common surveillance camera sizes, keyed by short name.
var resolutions = map[string]Resolution{
	"qvga":  {Name: "QVGA", AspectRatio: "4:3", Width: 320, Height: 240},
	"vga":   {Name: "VGA", AspectRatio: "4:3", Width: 640, Height: 480},
	"360p":  {Name: "nHD", AspectRatio: "16:9", Width: 640, Height: 360},
	"480p":  {Name: "FWVGA", AspectRatio: "16:9", Width: 854, Height: 480},
	"540p":  {Name: "qHD 540p", AspectRatio: "16:9", Width: 960, Height: 540},
	"720p":  {Name: "HD 720p", AspectRatio: "16:9", Width: 1280, Height: 720},
	"1mp":   {Name: "1MP (5:4)", AspectRatio: "5:4", Width: 1280, Height: 1024},
	"1080p": {Name: "Full HD 1080p", AspectRatio: "16:9", Width: 1920, Height: 1080},
	"2mp":   {Name: "2MP (4:3)", AspectRatio: "4:3", Width: 1600, Height: 1200},
	"1440p": {Name: "QHD 1440p", AspectRatio: "16:9", Width: 2560, Height: 1440},
	"3mp":   {Name: "3MP (4:3)", AspectRatio: "4:3", Width: 2048, Height: 1536},
	"4mp":   {Name: "4MP (16:9)", AspectRatio: "16:9", Width: 2688, Height: 1520},
	"4k":    {Name: "4K UHD", AspectRatio: "16:9", Width: 3840, Height: 2160},
}

// LookupResolution finds a resolution by short name such as "720p" or "vga",
// ignoring case.
func LookupResolution(name string) (Resolution, bool) {
	r, ok := resolutions[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Resolutions returns every known resolution, smallest first.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Width*all[i].Height != all[j].Width*all[j].Height {
			return all[i].Width*all[i].Height < all[j].Width*all[j].Height
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// HighestResolutionWithin returns the largest known resolution that fits in
// width × height. It returns false when none fits.
//
// Arguments:
//   - width: The maximum width.
//   - height: The maximum height.
//
// Returns:
//   - Resolution: The largest fitting resolution.
//   - bool: True if a resolution was found.
func HighestResolutionWithin(width, height int) (Resolution, bool) {
	all := Resolutions()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Width <= width && all[i].Height <= height {
			return all[i], true
		}
	}
	return Resolution{}, false
}
