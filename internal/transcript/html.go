package transcript

import (
	"fmt"
	"html/template"
	"io"

	"github.com/kitamura/hanasu/internal/conversation"
)

// bubbleView augments Bubble with the fields the template needs.
type bubbleView struct {
	Bubble
	MessageClass     string
	TranslationClass string
	AudioSrc         template.URL
}

const bubbleHTML = `{{range .}}<div class="message-container {{.Align}}">
  <div class="message-box-wrapper {{.Align}}">
    <div class="message-box {{.MessageClass}}">{{.PrimaryText}}</div>
    <div class="message-box translation {{.TranslationClass}}">{{.SecondaryText}}</div>
    <audio controls {{if .Autoplay}}autoplay {{end}}src="{{.AudioSrc}}"></audio>
  </div>
</div>
{{end}}`

var bubbleTmpl = template.Must(template.New("bubbles").Parse(bubbleHTML))

// RenderHTML writes the transcript fragment for bubbles. The audio is
// embedded as a base64 data URI so the fragment is self-contained.
func RenderHTML(w io.Writer, bubbles []Bubble) error {
	views := make([]bubbleView, 0, len(bubbles))
	for _, b := range bubbles {
		messageClass := "japanese-message"
		translationClass := "english"
		if b.Lang == conversation.English {
			messageClass = "english-message"
			translationClass = "japanese"
		}
		views = append(views, bubbleView{
			Bubble:           b,
			MessageClass:     messageClass,
			TranslationClass: translationClass,
			// html/template rejects data: URIs as unsafe; the payload is
			// base64 we encoded ourselves, so mark it trusted explicitly.
			AudioSrc: template.URL("data:audio/mp3;base64," + b.AudioBase64),
		})
	}

	if err := bubbleTmpl.Execute(w, views); err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	return nil
}
