/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imaging decodes user-supplied images and renders confirmed crops.
// JPEG, PNG, GIF plus the x/image formats (WebP, BMP, TIFF) are accepted.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"invitestudio/internal/crop"
)

// Probe reads just enough of data to report intrinsic dimensions and format.
func Probe(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Processor implements the editor's image decode and crop-render hooks.
type Processor struct{}

func New() Processor { return Processor{} }

// Decode fully decodes the image and returns a PNG data URI preview
// reference plus intrinsic dimensions. The context is checked before the
// (potentially slow) decode begins.
func (Processor) Decode(ctx context.Context, data []byte) (ref string, width, height int, err error) {
	if err := ctx.Err(); err != nil {
		return "", 0, 0, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	out, err := encodeDataURI(img)
	if err != nil {
		return "", 0, 0, err
	}
	return out, b.Dx(), b.Dy(), nil
}

// RenderCrop samples box's source rectangle out of the image and scales it
// onto the output canvas, returning the result as a PNG data URI.
func (Processor) RenderCrop(ctx context.Context, data []byte, box crop.Box) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	src := image.Rect(
		int(box.SourceX+0.5), int(box.SourceY+0.5),
		int(box.SourceX+box.SourceW+0.5), int(box.SourceY+box.SourceH+0.5),
	).Intersect(img.Bounds())
	if src.Empty() {
		return "", fmt.Errorf("crop box %+v outside image bounds %v", box, img.Bounds())
	}
	dst := image.NewRGBA(image.Rect(0, 0, box.OutputW, box.OutputH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return encodeDataURI(dst)
}

func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
