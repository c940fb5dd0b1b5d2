package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	"golang.org/x/oauth2"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

const DefaultGithubAPIURL = "https://api.github.com"

type GithubConfig struct {
	APIURL     string
	Repository string
	Token      string
	Timeout    time.Duration
}

type createReleaseRequest struct {
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name"`
	Body            string `json:"body"`
}

type releaseResponse struct {
	ID        int64  `json:"id"`
	HTMLURL   string `json:"html_url"`
	UploadURL string `json:"upload_url"`
}

// NewGithubPublisher creates releases through the GitHub REST API.
func NewGithubPublisher(ctx context.Context, config GithubConfig) service.ReleasePublisher {
	if config.APIURL == "" {
		config.APIURL = DefaultGithubAPIURL
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
	httpClient.Timeout = config.Timeout
	client := pester.NewExtendedClient(httpClient)
	client.MaxRetries = 3
	client.Backoff = pester.ExponentialJitterBackoff
	client.KeepLog = true

	return &githubPublisher{
		config: config,
		client: client,
	}
}

type githubPublisher struct {
	config GithubConfig
	client *pester.Client
}

func (p githubPublisher) Publish(ctx context.Context, release model.Release) error {
	if p.config.Repository == "" {
		return errors.New("github repository is not configured")
	}
	created, err := p.createRelease(ctx, release)
	if err != nil {
		return err
	}
	uploadURL := strings.SplitN(created.UploadURL, "{", 2)[0]
	for _, asset := range release.Assets {
		err = p.uploadAsset(ctx, uploadURL, asset)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p githubPublisher) createRelease(ctx context.Context, release model.Release) (releaseResponse, error) {
	requestURL := fmt.Sprintf("%v/repos/%v/releases", strings.TrimRight(p.config.APIURL, "/"), p.config.Repository)
	statusCode, body, err := p.call(ctx, http.MethodPost, requestURL, "application/json", createReleaseRequest{
		TagName:         release.Tag,
		TargetCommitish: release.Commit,
		Name:            release.Title,
		Body:            release.Body,
	})
	if err != nil {
		return releaseResponse{}, errors.Wrapf(err, "failed to create release %v", release.Tag)
	}
	if statusCode != http.StatusCreated {
		return releaseResponse{}, fmt.Errorf("release %v rejected with status code %v: %v", release.Tag, statusCode, string(body))
	}
	var created releaseResponse
	err = json.Unmarshal(body, &created)
	if err != nil {
		return releaseResponse{}, errors.Wrap(err, "failed to unmarshal release response")
	}
	if created.UploadURL == "" {
		return releaseResponse{}, fmt.Errorf("release %v response has no upload url", release.Tag)
	}
	return created, nil
}

func (p githubPublisher) uploadAsset(ctx context.Context, uploadURL, asset string) error {
	data, err := os.ReadFile(asset)
	if err != nil {
		return errors.Wrapf(err, "failed to read asset %v", asset)
	}
	name := filepath.Base(asset)
	statusCode, body, err := p.call(ctx, http.MethodPost, uploadURL+"?name="+url.QueryEscape(name), "application/octet-stream", data)
	if err != nil {
		return errors.Wrapf(err, "failed to upload asset %v", name)
	}
	if statusCode != http.StatusCreated {
		return fmt.Errorf("asset %v rejected with status code %v: %v", name, statusCode, string(body))
	}
	return nil
}

// call sends raw bytes as-is and marshals anything else to json.
func (p githubPublisher) call(ctx context.Context, method, requestURL, contentType string, payload interface{}) (int, []byte, error) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return 0, nil, err
		}
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("Content-Type", contentType)

	response, err := p.client.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, err
	}
	return response.StatusCode, body, nil
}
