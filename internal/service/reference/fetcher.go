package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ImageExt is the extension of every reference image.
const ImageExt = ".jpeg"

// maxImageSize bounds a single reference image download.
const maxImageSize = 16 << 20

// ImageFetcher loads the reference image of a label.
type ImageFetcher interface {
	Fetch(ctx context.Context, label string) ([]byte, error)
}

// NewFetcher returns an HTTP fetcher for http(s) roots and a directory
// fetcher otherwise.
func NewFetcher(root string, client *http.Client) ImageFetcher {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		if client == nil {
			client = http.DefaultClient
		}
		return &HTTPFetcher{BaseURL: strings.TrimRight(root, "/"), Client: client}
	}
	return DirFetcher(root)
}

// DirFetcher reads {dir}/{label}.jpeg.
type DirFetcher string

func (d DirFetcher) Fetch(ctx context.Context, label string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validLabel(label) {
		return nil, fmt.Errorf("invalid label %q", label)
	}
	return os.ReadFile(filepath.Join(string(d), label+ImageExt))
}

// HTTPFetcher downloads {BaseURL}/{label}.jpeg.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (h *HTTPFetcher) Fetch(ctx context.Context, label string) ([]byte, error) {
	if !validLabel(label) {
		return nil, fmt.Errorf("invalid label %q", label)
	}

	url := h.BaseURL + "/" + label + ImageExt
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
}

// validLabel rejects labels that would escape the reference root.
func validLabel(label string) bool {
	return label != "" && !strings.ContainsAny(label, `/\`) && !strings.Contains(label, "..")
}
