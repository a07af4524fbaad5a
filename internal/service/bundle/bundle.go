// Package bundle makes sure the pretrained face model files are present
// before the recognizer is constructed.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Bundle is one pretrained model file.
type Bundle struct {
	Name string // What the model does, used in logs
	File string // Path relative to the models directory
}

// Bundles lists the three models the recognizer needs, in load order.
var Bundles = []Bundle{
	{Name: "face detector", File: "mmod_human_face_detector.dat"},
	{Name: "face landmarks", File: "shape_predictor_5_face_landmarks.dat"},
	{Name: "face recognition", File: "dlib_face_recognition_resnet_model_v1.dat"},
}

// ErrModelMissing is returned when a bundle is absent and cannot be fetched.
var ErrModelMissing = errors.New("model bundle missing")

// Ensure checks every bundle in dir. Missing bundles are downloaded from
// baseURL/{file} when baseURL is set. It returns the bundles that were fetched.
func Ensure(ctx context.Context, client *http.Client, dir, baseURL string) ([]Bundle, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var fetched []Bundle
	for _, b := range Bundles {
		path := filepath.Join(dir, b.File)
		info, err := os.Stat(path)
		if err == nil && info.Size() > 0 {
			continue
		}
		if err != nil && !os.IsNotExist(err) {
			return fetched, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if baseURL == "" {
			return fetched, fmt.Errorf("%w: %s (%s)", ErrModelMissing, b.Name, path)
		}

		if err := download(ctx, client, strings.TrimRight(baseURL, "/")+"/"+b.File, path); err != nil {
			return fetched, fmt.Errorf("failed to fetch %s: %w", b.Name, err)
		}
		fetched = append(fetched, b)
	}
	return fetched, nil
}

// download writes url to path through a temporary file so a partial download
// never looks like a valid bundle.
func download(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrModelMissing, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
