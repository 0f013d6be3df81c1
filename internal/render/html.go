package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

const cardCSS = `body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 640px; margin: 2em auto; color: #222; }
section.preview { margin-bottom: 2.5em; }
section.preview > h1 { font-size: 1em; text-transform: uppercase; color: #666; }
article.card { border: 1px solid #ccc; border-radius: 8px; overflow: hidden; }
article.card .body { padding: 0.75em; }
article.card-large img.image { display: block; width: 100%; }
article.card-medium, article.card-small { display: flex; }
article.card-medium img.image, article.card-medium img.icon,
article.card-small img.image, article.card-small img.icon { flex: none; align-self: center; margin: 0.5em; }
article.card .site { color: #666; font-size: 0.85em; }
article.card .site img { vertical-align: middle; margin-right: 0.4em; }
article.card h2 { font-size: 1.05em; margin: 0.3em 0; }
article.card p { margin: 0; color: #444; }
article.card-error { padding: 0.75em; color: #a00; }
ul.log { font-family: monospace; font-size: 0.8em; }
`

// cardTmpl renders one View. Data URIs pass through template.URL so the
// sanitizer keeps them.
var cardTmpl = template.Must(template.New("card").Funcs(template.FuncMap{
	"src": func(s string) template.URL { return template.URL(s) },
}).Parse(`<section class="preview preview-{{.Social}}">
<h1>{{.Social}}</h1>
{{- if .Error}}
<article class="card card-error"><p>{{.Error}}</p></article>
{{- else}}
<article class="card card-{{.Size}}">
{{- if .Image}}
<img class="image" src="{{src .Image}}" alt="Card image">
{{- else if .Icon}}
<img class="icon" src="{{src .Icon}}" alt="Site icon">
{{- end}}
<div class="body">
<div class="site">{{if .Favicon}}<img src="{{src .Favicon}}" alt="Favicon" width="16" height="16">{{end}}{{.Site}}</div>
<h2>{{.Title}}</h2>
{{- with .Description}}
<p>{{.}}</p>
{{- end}}
</div>
</article>
{{- end}}
{{- if .Log}}
<ul class="log">
{{- range .Log}}
<li>[{{.Level}}] {{.Text}}</li>
{{- end}}
</ul>
{{- end}}
</section>
`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
{{.Body}}</body>
</html>
`))

// fragment renders the views without the document wrapper.
func fragment(views []View) (string, error) {
	var buf bytes.Buffer
	for _, v := range views {
		if err := cardTmpl.Execute(&buf, v); err != nil {
			return "", fmt.Errorf("rendering %s card: %w", v.Social, err)
		}
	}
	return buf.String(), nil
}

// HTML writes a standalone page previewing results, titled after pageURL.
func HTML(w io.Writer, pageURL string, results []Result) error {
	views, err := Views(results)
	if err != nil {
		return err
	}
	body, err := fragment(views)
	if err != nil {
		return err
	}
	err = pageTmpl.Execute(w, struct {
		Title string
		CSS   template.CSS
		Body  template.HTML
	}{
		Title: "Link preview: " + pageURL,
		CSS:   template.CSS(cardCSS),
		Body:  template.HTML(body),
	})
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}
