package layout

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultDotsPerUnit 是载入图片时每个长度单位的像素数。
const DefaultDotsPerUnit = 20

// ImageStyle 描述图片的外框与分辨率。
type ImageStyle struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Center      bool    `json:"center,omitempty"`
	DotsPerUnit float64 `json:"dotsPerUnit,omitempty"`
}

func (s ImageStyle) dotsPerUnit() float64 {
	if s.DotsPerUnit > 0 {
		return s.DotsPerUnit
	}
	return DefaultDotsPerUnit
}

// Validate 要求外框宽高为正。
func (s ImageStyle) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return NewRenderError(CodeInvalidStyle, "image box must have positive size", s.Width, s.Height)
	}
	if s.DotsPerUnit < 0 {
		return NewRenderError(CodeInvalidStyle, "dots per unit must not be negative", s.DotsPerUnit)
	}
	return nil
}

// ImageBlock 是按外框缩放后的图片。
type ImageBlock struct {
	name  string
	img   image.Image
	style ImageStyle
	scale float64
}

// LoadImage 读取并解码 path 处的图片，失败时返回 LOADING_IMAGE_FAILED。
func LoadImage(path string, style ImageStyle) (*ImageBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapRenderError(CodeImageLoad, err, path)
	}
	defer f.Close()
	return DecodeImage(f, path, style)
}

// DecodeImage 从 r 解码图片，name 仅用于错误信息。
// 支持 PNG、JPEG、GIF、BMP、TIFF 与 WebP。
func DecodeImage(r io.Reader, name string, style ImageStyle) (*ImageBlock, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, wrapRenderError(CodeImageLoad, err, name)
	}
	blk, err := NewImageBlock(img, style)
	if err != nil {
		return nil, err
	}
	blk.name = name
	return blk, nil
}

// NewImageBlock 将 img 重采样到外框对应的分辨率（保持宽高比），
// 并取两个方向中较小的缩放系数放入外框。
func NewImageBlock(img image.Image, style ImageStyle) (*ImageBlock, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, NewRenderError(CodeImageLoad, "image has no pixels")
	}

	dpu := style.dotsPerUnit()
	ratio := math.Min(dpu*style.Width/float64(b.Dx()), dpu*style.Height/float64(b.Dy()))
	w := max(int(math.Round(float64(b.Dx())*ratio)), 1)
	h := max(int(math.Round(float64(b.Dy())*ratio)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	scale := math.Min(style.Width/float64(w), style.Height/float64(h))
	return &ImageBlock{img: dst, style: style, scale: scale}, nil
}

func (b *ImageBlock) Width() float64  { return b.style.Width }
func (b *ImageBlock) Height() float64 { return b.style.Height }

// Name 返回图片来源（文件名）。
func (b *ImageBlock) Name() string { return b.name }

// Pixels 返回重采样后的像素尺寸。
func (b *ImageBlock) Pixels() (int, int) {
	r := b.img.Bounds()
	return r.Dx(), r.Dy()
}

// Placement 返回图片相对外框左上角 (x, y) 的绘制区域。
func (b *ImageBlock) Placement(x, y float64) Rect {
	pw, ph := b.Pixels()
	w, h := float64(pw)*b.scale, float64(ph)*b.scale
	if b.style.Center {
		x += (b.style.Width - w) / 2
		y += (b.style.Height - h) / 2
	}
	return Rect{X: x, Y: y, W: w, H: h}
}

// Draw 在外框 (x, y) 处绘制图片。
func (b *ImageBlock) Draw(s Surface, x, y float64) error {
	s.Save()
	defer s.Restore()
	if err := s.DrawImage(b.img, b.Placement(x, y)); err != nil {
		return fmt.Errorf("绘制图片 %s 失败: %w", b.name, err)
	}
	return nil
}
