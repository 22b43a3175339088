package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/closset/vectorcore/internal/document"
	"github.com/closset/vectorcore/internal/geom"
	"github.com/closset/vectorcore/internal/render"
)

// WriteSVG writes doc as a standalone SVG image whose view box is the
// document bounds grown by padding.
func WriteSVG(w io.Writer, doc *document.Document, padding float64) error {
	bw := bufio.NewWriter(w)

	rects := make([]geom.Rect, 0, len(doc.Paths))
	for _, p := range doc.Paths {
		if len(p.Points) > 0 {
			rects = append(rects, p.Bounds)
		}
	}
	box, _ := geom.UnionAll(rects)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s">`+"\n",
		num(box.X-padding), num(box.Y-padding), num(box.Width+2*padding), num(box.Height+2*padding))

	for _, p := range doc.Paths {
		d := pathData(render.PathData(p))
		if d == "" {
			continue
		}
		style := p.Style
		if style.Fill == "" && style.Stroke == "" {
			style = document.DefaultStyle()
		}
		bw.WriteString(`  <path id="`)
		xml.EscapeText(bw, []byte(p.ID))
		bw.WriteString(`" d="`)
		bw.WriteString(d)
		fmt.Fprintf(bw, `" fill="%s" stroke="%s" stroke-width="%s"`, paint(style.Fill), paint(style.Stroke), num(style.StrokeWidth))
		if style.Opacity > 0 && style.Opacity < 1 {
			fmt.Fprintf(bw, ` opacity="%s"`, num(style.Opacity))
		}
		bw.WriteString("/>\n")
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// pathData renders commands as SVG path data.
func pathData(cmds []render.PathCommand) string {
	var sb strings.Builder
	for i, cmd := range cmds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		for j, v := range cmd {
			switch v := v.(type) {
			case string:
				sb.WriteString(v)
			case float64:
				if j > 1 {
					sb.WriteByte(' ')
				}
				sb.WriteString(num(v))
			}
		}
	}
	return sb.String()
}

func paint(c string) string {
	if c == "" {
		return "none"
	}
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(c))
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
