package web

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

// Layout is the root document. The page body is taken from the context
// children (templ.WithChildren).
func Layout(meta Meta) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+templ.EscapeString(meta.Title)+`</title>`+
			`<meta name="description" content="`+templ.EscapeString(meta.Description)+`">`+
			`<link rel="stylesheet" href="/static/app.css">`+
			`</head><body><main class="container">`); err != nil {
			return err
		}
		if err := children.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// Render writes body inside the layout. The page is rendered to a buffer
// first so a template error still produces a clean 500.
func Render(c *gin.Context, status int, meta Meta, body templ.Component) {
	if body == nil {
		body = templ.NopComponent
	}

	var buf bytes.Buffer
	ctx := templ.WithChildren(c.Request.Context(), body)
	if err := Layout(meta).Render(ctx, &buf); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
