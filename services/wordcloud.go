package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	cloudWidth       = 800
	cloudHeight      = 400
	cloudMinFontSize = 12
	cloudMaxFontSize = 72
	emptyCloud       = "no data"
)

var cloudFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})
var cloudPalette = []color.RGBA{
	{0x44, 0x01, 0x54, 0xff},
	{0x3b, 0x52, 0x8b, 0xff},
	{0x21, 0x90, 0x8d, 0xff},
	{0x5d, 0xc9, 0x63, 0xff},
	{0xc2, 0x7c, 0x0e, 0xff},
	{0xb0, 0x2a, 0x3a, 0xff},
}

type wordFreq struct {
	word  string
	count int
}

// cloudWords counts content words in corpus, drops numbers, and keeps the
// maxWords most frequent.
func cloudWords(corpus string, maxWords int) []wordFreq {
	counts := make(map[string]int)
	for _, w := range contentTokens(corpus) {
		if !isNumeric(w) {
			counts[w]++
		}
	}
	out := make([]wordFreq, 0, len(counts))
	for _, w := range sortedKeys(counts) {
		out = append(out, wordFreq{w, counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if maxWords > 0 && len(out) > maxWords {
		out = out[:maxWords]
	}
	return out
}

// WordCloud renders the most frequent words of corpus into a PNG and
// returns it base64 encoded. Font size grows with the square root of a
// word's frequency. An empty corpus renders a placeholder.
func WordCloud(corpus string, maxWords int) (string, error) {
	words := cloudWords(corpus, maxWords)
	if len(words) == 0 {
		words = []wordFreq{{emptyCloud, 1}}
	}
	f, err := cloudFont()
	if err != nil {
		return "", err
	}

	dc := gg.NewContext(cloudWidth, cloudHeight)
	dc.SetColor(color.White)
	dc.Clear()

	// Faces keep a glyph cache and are not shared between renders.
	faces := make(map[int]font.Face)
	defer func() {
		for _, face := range faces {
			_ = face.Close()
		}
	}()

	maxCount := float64(words[0].count)
	var placed []image.Rectangle
	for i, wf := range words {
		size := cloudMinFontSize + int(math.Round((cloudMaxFontSize-cloudMinFontSize)*math.Sqrt(float64(wf.count)/maxCount)))
		face, ok := faces[size]
		if !ok {
			face = truetype.NewFace(f, &truetype.Options{Size: float64(size)})
			faces[size] = face
		}
		dc.SetFontFace(face)

		w, h := dc.MeasureString(wf.word)
		spot, ok := findSpot(int(math.Ceil(w)), int(math.Ceil(h)), placed)
		if !ok {
			continue
		}
		dc.SetColor(cloudPalette[i%len(cloudPalette)])
		centre := spot.Min.Add(spot.Size().Div(2))
		dc.DrawStringAnchored(wf.word, float64(centre.X), float64(centre.Y), 0.5, 0.5)
		placed = append(placed, spot)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// findSpot walks an elliptical spiral out from the centre and returns the
// first w×h rectangle inside the canvas that overlaps nothing placed.
func findSpot(w, h int, placed []image.Rectangle) (image.Rectangle, bool) {
	bounds := image.Rect(0, 0, cloudWidth, cloudHeight)
	cx, cy := cloudWidth/2, cloudHeight/2
	maxR := math.Hypot(cloudWidth, cloudHeight) / 2

	for t := 0.0; 2*t <= maxR; t += 0.1 {
		r := 2 * t
		x := cx + int(r*math.Cos(t)) - w/2
		y := cy + int(r*math.Sin(t)/2) - h/2
		rect := image.Rect(x, y, x+w, y+h)
		if !rect.In(bounds) {
			continue
		}
		free := true
		for _, p := range placed {
			if rect.Overlaps(p) {
				free = false
				break
			}
		}
		if free {
			return rect, true
		}
	}
	return image.Rectangle{}, false
}
