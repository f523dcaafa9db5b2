package omrsvc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/omr"
)

const (
	blockSize   = 31
	threshC     = 15
	cellPadding = 0.2
	minFill     = 0.25
	minDelta    = 0.08

	// student numbers are the last digits of wide grids
	wideGridCols      = 11
	studentNumberSize = 8
)

// gaussian 5x5 kernel (sigma 1.1), applied separably
var gaussKernel = [5]int{1, 4, 6, 4, 1}

// NativeScanner reads OMR sheets in-process.
type NativeScanner struct {
	layout   omr.Layout
	debugDir string // empty: no debug image
}

var _ omr.Scanner = (*NativeScanner)(nil)

func NewNativeScanner(layout omr.Layout, debugDir string) *NativeScanner {
	return &NativeScanner{layout: layout, debugDir: debugDir}
}

func (s *NativeScanner) Scan(ctx context.Context, _ omr.Mode, data []byte) (omr.ScanResult, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return omr.ScanResult{}, omr.ErrInvalidImage
	}
	if err = ctx.Err(); err != nil {
		return omr.ScanResult{}, err
	}

	thresh := threshold(blur(grayscale(img)))
	warnings := make([]string, 0)

	snFills := gridFills(thresh, s.layout.Regions.StudentNumber)
	studentNumber := readStudentNumber(snFills, &warnings)

	ansFills := gridFills(thresh, s.layout.Regions.Answers)
	answers := readAnswers(ansFills, &warnings)

	res := omr.ScanResult{
		Answers:       answers,
		StudentNumber: studentNumber,
		Total:         len(answers),
		Warnings:      warnings,
	}
	if s.debugDir != "" {
		if res.DebugImage, err = s.writeDebugImage(img); err != nil {
			return omr.ScanResult{}, err
		}
	}
	return res, nil
}

// gray is a row-major 8-bit grayscale image.
type gray struct {
	w, h int
	pix  []uint8
}

func (g gray) at(x, y int) uint8 { return g.pix[y*g.w+x] }

func grayscale(img image.Image) gray {
	b := img.Bounds()
	g := gray{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.pix[y*g.w+x] = c.Y
		}
	}
	return g
}

// reflect101 maps i into [0, n) mirroring around the edges, without repeating them.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func blur(src gray) gray {
	tmp := make([]int, len(src.pix))
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			sum := 0
			for k, wt := range gaussKernel {
				sum += wt * int(src.at(reflect101(x+k-2, src.w), y))
			}
			tmp[y*src.w+x] = sum
		}
	}
	dst := gray{w: src.w, h: src.h, pix: make([]uint8, len(src.pix))}
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			sum := 0
			for k, wt := range gaussKernel {
				sum += wt * tmp[reflect101(y+k-2, src.h)*src.w+x]
			}
			dst.pix[y*src.w+x] = uint8((sum + 128) / 256)
		}
	}
	return dst
}

// threshold marks (255) the pixels darker than the mean of their block by more than threshC.
// Borders replicate the edge pixels.
func threshold(src gray) gray {
	r := blockSize / 2
	rowSums := make([]int, len(src.pix))
	for y := 0; y < src.h; y++ {
		sum := 0
		for dx := -r; dx <= r; dx++ {
			sum += int(src.at(clamp(dx, src.w), y))
		}
		for x := 0; x < src.w; x++ {
			rowSums[y*src.w+x] = sum
			sum += int(src.at(clamp(x+r+1, src.w), y)) - int(src.at(clamp(x-r, src.w), y))
		}
	}

	dst := gray{w: src.w, h: src.h, pix: make([]uint8, len(src.pix))}
	area := blockSize * blockSize
	for x := 0; x < src.w; x++ {
		sum := 0
		for dy := -r; dy <= r; dy++ {
			sum += rowSums[clamp(dy, src.h)*src.w+x]
		}
		for y := 0; y < src.h; y++ {
			mean := (sum + area/2) / area
			if int(src.at(x, y)) <= mean-threshC {
				dst.pix[y*src.w+x] = 255
			}
			sum += rowSums[clamp(y+r+1, src.h)*src.w+x] - rowSums[clamp(y-r, src.h)*src.w+x]
		}
	}
	return dst
}

func regionRect(r omr.Region, w, h int) image.Rectangle {
	x, y := int(r.X*float64(w)), int(r.Y*float64(h))
	return image.Rect(x, y, x+int(r.W*float64(w)), y+int(r.H*float64(h)))
}

// gridFills returns the ratio of marked pixels in the inner part of each cell of a region.
func gridFills(thresh gray, r omr.Region) [][]float64 {
	rect := regionRect(r, thresh.w, thresh.h)
	cellW := float64(rect.Dx()) / float64(r.Cols)
	cellH := float64(rect.Dy()) / float64(r.Rows)
	padX, padY := int(cellW*cellPadding), int(cellH*cellPadding)

	fills := make([][]float64, r.Rows)
	for row := 0; row < r.Rows; row++ {
		fills[row] = make([]float64, r.Cols)
		for col := 0; col < r.Cols; col++ {
			x0 := int(float64(rect.Min.X)+float64(col)*cellW) + padX
			y0 := int(float64(rect.Min.Y)+float64(row)*cellH) + padY
			x1 := x0 + int(cellW-float64(2*padX))
			y1 := y0 + int(cellH-float64(2*padY))
			if x1 > thresh.w {
				x1 = thresh.w
			}
			if y1 > thresh.h {
				y1 = thresh.h
			}

			marked, total := 0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					total++
					if thresh.at(x, y) != 0 {
						marked++
					}
				}
			}
			if total > 0 {
				fills[row][col] = float64(marked) / float64(total)
			}
		}
	}
	return fills
}

// pick returns the index of the bubble filled clearly more than the others, -1 when there is none.
func pick(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	idx := 0
	for i, v := range values {
		if v > values[idx] {
			idx = i
		}
	}
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	second := 0.0
	if len(sorted) > 1 {
		second = sorted[1]
	}
	if values[idx] < minFill || values[idx]-second < minDelta {
		return -1
	}
	return idx
}

func readStudentNumber(fills [][]float64, warnings *[]string) string {
	if len(fills) == 0 {
		return ""
	}
	digits := make([]int, 0, len(fills[0]))
	for col := range fills[0] {
		column := make([]float64, len(fills))
		for row := range fills {
			column[row] = fills[row][col]
		}
		digits = append(digits, pick(column))
	}
	if len(digits) >= wideGridCols {
		digits = digits[len(digits)-studentNumberSize:]
	}

	var number []byte
	for _, d := range digits {
		if d < 0 {
			number = append(number, '?')
			*warnings = append(*warnings, omr.WarnStudentMissing)
		} else {
			number = strconv.AppendInt(number, int64(d), 10)
		}
	}
	return string(number)
}

func readAnswers(fills [][]float64, warnings *[]string) []string {
	answers := make([]string, 0, len(fills))
	for _, row := range fills {
		idx := pick(row)
		if idx < 0 || idx >= len(omr.Options) {
			answers = append(answers, "?")
			*warnings = append(*warnings, omr.WarnUnclearAnswer)
		} else {
			answers = append(answers, omr.Options[idx])
		}
	}
	return answers
}

// writeDebugImage writes a PNG copy of img with the layout regions outlined and returns its path.
func (s *NativeScanner) writeDebugImage(img image.Image) (string, error) {
	b := img.Bounds()
	debug := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(debug, debug.Bounds(), img, b.Min, draw.Src)

	green := color.RGBA{G: 255, A: 255}
	for _, r := range []omr.Region{s.layout.Regions.StudentNumber, s.layout.Regions.Answers} {
		outline(debug, regionRect(r, b.Dx(), b.Dy()), 2, green)
	}

	if err := os.MkdirAll(s.debugDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating debug dir")
	}
	path := filepath.Join(s.debugDir, uuid.NewString()+"_debug.png")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating debug image")
	}
	defer f.Close()
	if err = png.Encode(f, debug); err != nil {
		return "", errors.Wrap(err, "encoding debug image")
	}
	return path, nil
}

func outline(img *image.RGBA, r image.Rectangle, width int, c color.Color) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), u, image.Point{}, draw.Src)
	}
}
