/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crop computes source-sampling rectangles for interactive image
// cropping. Pure math, no dependencies.
package crop

// Aspect ratio tokens accepted by Compute.
const (
	AspectWide   = "16:9"
	AspectTall   = "9:16"
	AspectSquare = "1:1"
	AspectFree   = "free"
)

// DefaultOutputWidth is the fixed pixel width of the output canvas.
const DefaultOutputWidth = 800

// Zoom percentage bounds. Zoom below 100 is treated as 100; above 200 the
// shrink is capped so the sampled rectangle can never leave image bounds
// for the supported aspect tokens.
const (
	MinZoom = 100
	MaxZoom = 200
)

// Box is the sampling rectangle inside the source image and the pixel size
// of the output canvas it is drawn onto. It is transient: recomputed on
// every zoom/aspect/image change and never stored.
type Box struct {
	SourceX float64
	SourceY float64
	SourceW float64
	SourceH float64
	OutputW int
	OutputH int
}

// Compute derives the crop box for an image of intrinsic size imgW x imgH,
// a target aspect token and a zoom percentage, with the default output width.
//
// The base rectangle is the largest rectangle of the target aspect that fits
// inside the image ("cover" fit), centered. Zoom shrinks that rectangle by
// 1/zoomFactor about its own center, so more zoom samples less of the image.
// At zoom=100 the result is exactly the cover fit.
func Compute(imgW, imgH int, aspect string, zoom float64) Box {
	return ComputeWithWidth(imgW, imgH, aspect, zoom, DefaultOutputWidth)
}

// ComputeWithWidth is Compute with an explicit output canvas width.
func ComputeWithWidth(imgW, imgH int, aspect string, zoom float64, outputW int) Box {
	if outputW <= 0 {
		outputW = DefaultOutputWidth
	}
	w := float64(imgW)
	h := float64(imgH)
	target := targetAspect(aspect, w, h)

	// Cover fit: clip the dimension that overshoots the target aspect.
	srcW, srcH := w, h
	if w/h > target {
		srcW = h * target
	} else {
		srcH = w / target
	}

	// Shrink about center to simulate zooming in.
	zf := zoomFactor(zoom)
	srcW /= zf
	srcH /= zf

	return Box{
		SourceX: (w - srcW) / 2,
		SourceY: (h - srcH) / 2,
		SourceW: srcW,
		SourceH: srcH,
		OutputW: outputW,
		OutputH: int(float64(outputW)/target + 0.5),
	}
}

// targetAspect resolves a token to a width/height ratio. "free" and unknown
// tokens fall back to the image's own aspect, which makes the cover fit the
// whole image.
func targetAspect(token string, imgW, imgH float64) float64 {
	switch token {
	case AspectWide:
		return 16.0 / 9.0
	case AspectTall:
		return 9.0 / 16.0
	case AspectSquare:
		return 1
	default:
		return imgW / imgH
	}
}

func zoomFactor(zoom float64) float64 {
	if zoom < MinZoom {
		return 1
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	return zoom / 100
}
