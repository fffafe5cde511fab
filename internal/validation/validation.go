// Package validation holds the pure checks that guard every asset operation.
// Nothing here touches storage; a failed check means nothing was mutated.
package validation

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"assetapi/internal/apperr"
	"assetapi/internal/model"
)

// DefaultMaxFileSize is 10 MiB.
const DefaultMaxFileSize int64 = 10 << 20

// DateLayout is the accepted uploadDate filter format.
const DateLayout = "2006-01-02"

// DefaultAllowedTypes is the mime allow-list used when none is configured.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"video/mp4",
}

// Policy is the immutable upload and filter policy, built once at startup.
type Policy struct {
	MaxFileSize  int64
	AllowedTypes []string
	// Location defines calendar days for uploadDate filters. Nil means time.Local.
	Location *time.Location
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	types := make([]string, len(DefaultAllowedTypes))
	copy(types, DefaultAllowedTypes)
	return Policy{MaxFileSize: DefaultMaxFileSize, AllowedTypes: types, Location: time.Local}
}

// FileMeta describes an uploaded file as reported by the transport.
type FileMeta struct {
	Filename string
	MimeType string
	Size     int64
}

// UploadMeta is the normalized result of ValidateUpload.
type UploadMeta struct {
	SizeBytes int64
	MimeType  string
	Tags      []string
}

// Filter holds raw list filters. Blank strings are treated as absent.
type Filter struct {
	Type       string
	UploadDate string
	Tags       string
}

// ValidateUpload checks presence, type and size of the file and normalizes
// rawTags. rawTags holds every submitted tags value; more than one value is not
// a flat comma-separated string and is rejected.
func (p Policy) ValidateUpload(f *FileMeta, rawTags []string) (UploadMeta, error) {
	if f == nil {
		return UploadMeta{}, apperr.NewValidation(apperr.CodeFileRequired, "No file uploaded",
			map[string]any{"details": "Please select a file to upload"})
	}
	if !p.ValidateMimeType(f.MimeType) {
		return UploadMeta{}, apperr.NewValidation(apperr.CodeInvalidFileType,
			"Invalid file type. Only "+strings.Join(p.AllowedTypes, ", ")+" files are allowed.",
			map[string]any{"provided_type": f.MimeType, "supported_types": p.AllowedTypes})
	}
	if err := p.CheckSize(f.Size); err != nil {
		return UploadMeta{}, err
	}

	var tags []string
	switch len(rawTags) {
	case 0:
		tags = []string{}
	case 1:
		tags = ParseTags(rawTags[0])
	default:
		return UploadMeta{}, apperr.NewValidation(apperr.CodeInvalidTags, "Invalid tags format",
			map[string]any{"details": "Tags should be provided as a comma-separated string"})
	}

	return UploadMeta{SizeBytes: f.Size, MimeType: f.MimeType, Tags: tags}, nil
}

// CheckSize rejects sizes above the policy maximum, reporting both sizes.
func (p Policy) CheckSize(size int64) error {
	if size <= p.MaxFileSize {
		return nil
	}
	return apperr.NewValidation(apperr.CodeFileTooLarge, "File too large", map[string]any{
		"details":        "Maximum file size is " + humanize.IBytes(uint64(p.MaxFileSize)),
		"provided_size":  humanize.IBytes(uint64(size)),
		"max_size":       humanize.IBytes(uint64(p.MaxFileSize)),
		"provided_bytes": size,
		"max_bytes":      p.MaxFileSize,
	})
}

// ValidateMimeType reports whether mimeType is allow-listed.
func (p Policy) ValidateMimeType(mimeType string) bool {
	for _, t := range p.AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// ValidateFilterQuery compiles raw list filters into a query.
func (p Policy) ValidateFilterQuery(f Filter) (model.AssetQuery, error) {
	var q model.AssetQuery

	if t := strings.TrimSpace(f.Type); t != "" {
		lower := strings.ToLower(t)
		supported := false
		for _, allowed := range p.AllowedTypes {
			if strings.Contains(strings.ToLower(allowed), lower) {
				supported = true
				break
			}
		}
		if !supported {
			return model.AssetQuery{}, apperr.NewValidation(apperr.CodeInvalidTypeQuery, "Invalid file type filter",
				map[string]any{
					"details":         "Supported file types are: " + strings.Join(p.AllowedTypes, ", "),
					"supported_types": p.AllowedTypes,
				})
		}
		q.MimeType = lower
	}

	if d := strings.TrimSpace(f.UploadDate); d != "" {
		from, to, err := p.dayWindow(d)
		if err != nil {
			return model.AssetQuery{}, apperr.NewValidation(apperr.CodeInvalidDate, "Invalid date format",
				map[string]any{"details": "Please provide date in YYYY-MM-DD format"})
		}
		q.UploadedFrom = &from
		q.UploadedTo = &to
	}

	if strings.TrimSpace(f.Tags) != "" {
		tags := ParseTags(f.Tags)
		if len(tags) == 0 {
			return model.AssetQuery{}, apperr.NewValidation(apperr.CodeInvalidTags, "Invalid tags format",
				map[string]any{"details": "Tags should be non-empty, comma-separated values"})
		}
		q.Tags = tags
	}

	return q, nil
}

// dayWindow returns [start of day, start of next day) for a YYYY-MM-DD date.
// Both bounds are built independently so end always follows start, DST included.
func (p Policy) dayWindow(s string) (time.Time, time.Time, error) {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start, end, nil
}

// ValidateAssetID reports whether id has the metadata store's identifier syntax.
func ValidateAssetID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// ParseTags splits a comma-separated string, trims each tag and drops empties.
// Order and duplicates are preserved.
func ParseTags(raw string) []string {
	out := make([]string, 0)
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
