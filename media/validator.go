package media

import (
	"fmt"
	"regexp"
	"strings"
)

var extensions = map[MediaType][]string{
	MediaAudio: {".wav", ".flac", ".aiff", ".alac", ".mp3", ".aac", ".ogg", ".oga", ".mp4", ".mp2", ".m4a", ".3gp", ".3g2", ".mj2", ".amr", ".wma"},
	MediaImage: {".jpg", ".png"},
}

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9/!\-_.*'()]+$`)

// Extensions returns a copy of the accepted extensions for mediaType.
func Extensions(mediaType MediaType) []string {
	return append([]string(nil), extensions[mediaType]...)
}

// CheckExtension reports whether the lowercased filename ends with one of the
// extensions registered for mediaType.
func CheckExtension(filename string, mediaType MediaType) (bool, error) {
	exts, ok := extensions[mediaType]
	if !ok {
		return false, fmt.Errorf("%w: %q (choices: audio, image)", ErrUnknownMediaType, mediaType)
	}

	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true, nil
		}
	}
	return false, nil
}

// CheckFilename reports whether every character of filename is in [A-Za-z0-9/!-_.*'()].
func CheckFilename(filename string) bool {
	return filenamePattern.MatchString(filename)
}

// ValidateFilename runs both checks for one request field and returns a
// *ValidationError naming the field on rejection.
func ValidateFilename(field Field, filename string, mediaType MediaType) error {
	ok, err := CheckExtension(filename, mediaType)
	if err != nil {
		return err
	}
	if !ok {
		return &ValidationError{
			Field:  field.FilenameKey(),
			Reason: fmt.Sprintf("Unsupported %s file extension.", mediaType),
		}
	}

	if !CheckFilename(filename) {
		return &ValidationError{
			Field:  field.FilenameKey(),
			Reason: fmt.Sprintf("Incorrect %s filename format.", mediaType),
		}
	}
	return nil
}
