// Package gist persists class data in GitHub Gists: one master gist holds
// the class configuration (shared PIN and the student index) and each
// student record lives in its own secret gist, addressed by gist ID.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/student"
)

type (
	Gateway struct {
		client     *http.Client
		baseURL    string
		token      string
		masterID   string
		configFile string
		dataFile   string
		logger     core.Logger
	}

	gistFile struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated,omitempty"`
	}

	gistPayload struct {
		ID          string              `json:"id,omitempty"`
		Description string              `json:"description,omitempty"`
		Public      bool                `json:"public"`
		Files       map[string]gistFile `json:"files"`
	}
)

var _ student.Gateway = (*Gateway)(nil)

func NewGateway(conf *core.Config, logger core.Logger) *Gateway {
	return &Gateway{
		client:     &http.Client{Timeout: conf.SaveTimeout},
		baseURL:    conf.Gist.APIBaseURL,
		token:      conf.Gist.Token,
		masterID:   conf.Gist.MasterGistID,
		configFile: conf.Gist.ConfigFile,
		dataFile:   conf.Gist.DataFile,
		logger:     logger,
	}
}

func (gw *Gateway) LoadConfig(ctx context.Context) (student.ClassConfig, error) {
	g, err := gw.fetch(ctx, gw.masterID)
	if err != nil {
		return student.ClassConfig{}, errors.Wrap(err, "loading master gist")
	}
	f, ok := g.Files[gw.configFile]
	if !ok {
		return student.ClassConfig{}, errors.Errorf("master gist has no %s", gw.configFile)
	}
	var cfg student.ClassConfig
	if err := json.Unmarshal([]byte(f.Content), &cfg); err != nil {
		return student.ClassConfig{}, errors.Wrap(err, "decoding class config")
	}
	if cfg.Students == nil {
		cfg.Students = make(map[string]string)
	}
	return cfg, nil
}

func (gw *Gateway) LoadRecord(ctx context.Context, handle string) (*student.Progress, error) {
	g, err := gw.fetch(ctx, handle)
	if err != nil {
		return nil, err
	}
	f, ok := g.Files[gw.dataFile]
	if !ok {
		return nil, student.ErrNotFound
	}
	var p student.Progress
	if err := json.Unmarshal([]byte(f.Content), &p); err != nil {
		// a corrupted gist is as good as a missing one; the caller
		// recovers by re-creating the record
		gw.logger.Warn(fmt.Sprintf("corrupted record gist %q: %v", handle, err), err)
		return nil, student.ErrNotFound
	}
	return &p, nil
}

func (gw *Gateway) CreateRecord(ctx context.Context, studentID string, p *student.Progress) (string, error) {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding record")
	}
	payload := gistPayload{
		Description: "classpoints record: " + studentID,
		Public:      false,
		Files:       map[string]gistFile{gw.dataFile: {Content: string(raw)}},
	}
	created, err := gw.do(ctx, http.MethodPost, gw.baseURL, payload)
	if err != nil {
		return "", errors.Wrap(err, "creating record gist")
	}
	if created.ID == "" {
		return "", errors.New("gist API returned no id")
	}

	cfg, err := gw.LoadConfig(ctx)
	if err != nil {
		return "", err
	}
	cfg.Students[studentID] = created.ID
	if err := gw.saveConfig(ctx, cfg); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (gw *Gateway) SaveRecord(ctx context.Context, handle string, p *student.Progress) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	payload := gistPayload{Files: map[string]gistFile{gw.dataFile: {Content: string(raw)}}}
	_, err = gw.do(ctx, http.MethodPatch, gw.baseURL+"/"+handle, payload)
	return errors.Wrapf(err, "saving record gist %q", handle)
}

func (gw *Gateway) DeleteRecord(ctx context.Context, studentID string) error {
	cfg, err := gw.LoadConfig(ctx)
	if err != nil {
		return err
	}
	handle, ok := cfg.Students[studentID]
	if !ok {
		return student.ErrNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, gw.baseURL+"/"+handle, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	res, err := gw.send(req)
	if err != nil {
		return errors.Wrapf(err, "deleting record gist %q", handle)
	}
	defer res.Body.Close()
	// a 404 means someone already deleted it; proceed to unindex
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusNotFound {
		return errors.Errorf("deleting record gist %q: status %d", handle, res.StatusCode)
	}

	delete(cfg.Students, studentID)
	return gw.saveConfig(ctx, cfg)
}

func (gw *Gateway) ListAllRecords(ctx context.Context) (map[string]*student.Progress, error) {
	cfg, err := gw.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	all := make(map[string]*student.Progress, len(cfg.Students))
	for id, handle := range cfg.Students {
		p, err := gw.LoadRecord(ctx, handle)
		switch errors.Cause(err) {
		case nil:
			all[id] = p
		case student.ErrNotFound:
			gw.logger.Warn(fmt.Sprintf("skipping stale index entry %q -> %q", id, handle))
		default:
			return nil, err
		}
	}
	return all, nil
}

func (gw *Gateway) saveConfig(ctx context.Context, cfg student.ClassConfig) error {
	cfg.LastUpdated = time.Now().UTC()
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding class config")
	}
	payload := gistPayload{Files: map[string]gistFile{gw.configFile: {Content: string(raw)}}}
	_, err = gw.do(ctx, http.MethodPatch, gw.baseURL+"/"+gw.masterID, payload)
	return errors.Wrap(err, "saving class config")
}

func (gw *Gateway) fetch(ctx context.Context, id string) (*gistPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gw.baseURL+"/"+id, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := gw.send(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, student.ErrNotFound
	case res.StatusCode != http.StatusOK:
		return nil, errors.Errorf("gist API: status %d", res.StatusCode)
	}

	var g gistPayload
	if err := json.NewDecoder(res.Body).Decode(&g); err != nil {
		return nil, errors.Wrap(err, "decoding gist")
	}
	return &g, nil
}

func (gw *Gateway) do(ctx context.Context, method, url string, payload gistPayload) (*gistPayload, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding payload")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := gw.send(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, student.ErrNotFound
	}
	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, errors.Errorf("gist API: status %d: %s", res.StatusCode, body)
	}

	var g gistPayload
	if err := json.NewDecoder(res.Body).Decode(&g); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return &g, nil
}

func (gw *Gateway) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if gw.token != "" {
		req.Header.Set("Authorization", "token "+gw.token)
	}
	res, err := gw.client.Do(req)
	return res, errors.Wrap(err, "calling gist API")
}
