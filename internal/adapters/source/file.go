package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/okian/vqs/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a candidate file.
type File struct {
	Keyword     string   `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	GeneratedAt string   `yaml:"generatedAt,omitempty" json:"generatedAt,omitempty"`
	Videos      []Record `yaml:"videos" json:"videos"`
}

// FileSource serves candidates loaded once from a YAML or JSON file.
type FileSource struct {
	path   string
	videos []model.CandidateVideo
}

// OpenFile loads the candidate file at path. The format follows the extension:
// .yaml, .yml or .json.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieve, err)
	}
	defer f.Close()

	videos, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileSource{path: path, videos: videos}, nil
}

// Decode reads a candidate file in the format named by ext.
func Decode(r io.Reader, ext string) ([]model.CandidateVideo, error) {
	var file File
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: yaml: %w", ErrDecode, err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: json: %w", ErrDecode, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	videos := make([]model.CandidateVideo, 0, len(file.Videos))
	for _, rec := range file.Videos {
		if rec.CollectionKeyword == "" {
			rec.CollectionKeyword = file.Keyword
		}
		v, err := rec.Candidate()
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// EncodeYAML writes videos as a candidate file.
func EncodeYAML(w io.Writer, file File, videos []model.CandidateVideo) error {
	file.Videos = make([]Record, len(videos))
	for i, v := range videos {
		file.Videos[i] = RecordOf(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	return enc.Close()
}

// Name implements Retriever.
func (s *FileSource) Name() string { return "file" }

// Retrieve implements Retriever.
func (s *FileSource) Retrieve(ctx context.Context, keyword string, limit int) ([]model.CandidateVideo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieve, err)
	}
	out := make([]model.CandidateVideo, 0)
	for _, v := range s.videos {
		if limit > 0 && len(out) >= limit {
			break
		}
		if matches(v.CollectionKeyword, keyword) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Len returns the number of candidates loaded from the file.
func (s *FileSource) Len() int {
	return len(s.videos)
}
