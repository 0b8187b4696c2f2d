package effects

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// acceptedImageTypes lists the formats the effects service can decode.
var acceptedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// inspectImage validates an upload and returns the media type and filename to
// send. The declared type must be an image type when present; the content
// itself must sniff as one of acceptedImageTypes.
func inspectImage(asset Asset, maxBytes int64) (string, string, error) {
	if len(asset.Data) == 0 {
		return "", "", &ValidationError{Field: "image", Message: "no image data provided"}
	}
	if maxBytes > 0 && int64(len(asset.Data)) > maxBytes {
		return "", "", &ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("image is too large (%d bytes, limit %d)", len(asset.Data), maxBytes),
		}
	}

	declared := strings.TrimSpace(asset.MediaType)
	if declared != "" {
		parsed, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", "", &ValidationError{Field: "media type", Message: fmt.Sprintf("malformed media type %q", declared)}
		}
		declared = parsed
		if !strings.HasPrefix(declared, "image/") {
			return "", "", &ValidationError{Field: "media type", Message: fmt.Sprintf("%s is not an image type", declared)}
		}
	}

	detected := mimetype.Detect(asset.Data)
	if !isAcceptedImage(detected) {
		return "", "", &ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("content is %s, expected JPEG, PNG, WebP or GIF", detected.String()),
		}
	}
	mediaType := declared
	if mediaType == "" {
		mediaType = detected.String()
	}

	filename := strings.TrimSpace(asset.Filename)
	if filename == "" {
		filename = "image" + detected.Extension()
	}
	return mediaType, filename, nil
}

func isAcceptedImage(m *mimetype.MIME) bool {
	for _, accepted := range acceptedImageTypes {
		if m.Is(accepted) {
			return true
		}
	}
	return false
}
