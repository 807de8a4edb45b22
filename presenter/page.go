package presenter

import (
	"html/template"
	"image"

	"github.com/Tutortoise/fracture-detection-service/summary"
)

const pageTitle = "AI-Powered Hand Fracture Detection"

type pageData struct {
	Title     string
	State     string
	Message   string
	Records   []summary.Record
	Original  template.URL
	Annotated template.URL
}

func dataURI(img image.Image) (template.URL, error) {
	encoded, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + encoded), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Hand Fracture Detector</title>
<style>
body { font-family: sans-serif; margin: 0 auto; max-width: 1200px; padding: 20px; }
h1, h2 { text-align: center; }
.columns { display: flex; gap: 20px; }
.columns figure { flex: 1; margin: 0; }
.columns img { width: 100%; }
.msg { border-radius: 8px; padding: 10px 14px; margin: 8px 0; }
.info { background: #e7f3fe; }
.warning { background: #fff4d6; }
.success { background: #e3f6e8; }
.error { background: #fde2e1; }
.caption { color: #666; font-size: 0.9em; margin: 0 0 12px 14px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p style="text-align:center">Upload an X-ray image of a hand, and the model will highlight fracture areas.</p>
<hr>
<form method="post" action="/" enctype="multipart/form-data">
<input type="file" name="file" accept=".jpg,.jpeg,.png,image/jpeg,image/png">
<button type="submit">Detect fractures</button>
</form>
{{if eq .State "no_image"}}
<div class="msg info" data-state="{{.State}}">{{.Message}}</div>
{{else}}
{{if or .Original .Annotated}}
<div class="columns">
{{if .Original}}<figure><img src="{{.Original}}" alt="Uploaded X-ray"><figcaption>Uploaded X-ray</figcaption></figure>{{end}}
{{if .Annotated}}<figure><img src="{{.Annotated}}" alt="Detection Result"><figcaption>Detection Result</figcaption></figure>{{end}}
</div>
{{end}}
<hr>
{{if eq .State "error"}}
<div class="msg error" data-state="{{.State}}">{{.Message}}</div>
{{else}}
<h2>Detection Summary</h2>
{{if eq .State "no_detections"}}
<div class="msg warning" data-state="{{.State}}">{{.Message}}</div>
{{else}}
{{range .Records}}
<div class="msg success">{{.DetectedLine}}</div>
<p class="caption">{{.CoordinatesLine}}</p>
{{end}}
{{end}}
{{end}}
{{end}}
<hr>
</body>
</html>
`))
