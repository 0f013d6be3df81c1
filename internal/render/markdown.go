package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

// markdown is built on first use; the converter is safe for concurrent
// conversions.
var markdown = sync.OnceValue(func() *converter.Converter {
	conv := converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	))
	conv.Register.RendererFor("img", converter.TagTypeInline, inlineImage, converter.PriorityEarly)
	return conv
})

// inlineImage drops embedded images, which would otherwise put a whole
// base64 payload into the text, and leaves their alt text in brackets.
// Remote images fall through to the CommonMark renderer.
func inlineImage(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	if src := dom.GetAttributeOr(n, "src", ""); !strings.HasPrefix(src, "data:") {
		return converter.RenderTryNext
	}
	alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", ""))
	if alt == "" {
		return converter.RenderSuccess
	}
	w.WriteString("[")
	w.WriteString(alt)
	w.WriteString("] ")
	return converter.RenderSuccess
}

// Markdown writes results as CommonMark, one section per platform separated
// by a horizontal rule.
func Markdown(w io.Writer, results []Result) error {
	views, err := Views(results)
	if err != nil {
		return err
	}
	sections := make([]string, len(views))
	for i, v := range views {
		frag, err := fragment([]View{v})
		if err != nil {
			return err
		}
		md, err := markdown().ConvertString(frag)
		if err != nil {
			return fmt.Errorf("converting %s card to markdown: %w", v.Social, err)
		}
		sections[i] = strings.TrimSpace(md)
	}
	_, err = fmt.Fprintln(w, strings.Join(sections, "\n\n---\n\n"))
	return err
}
