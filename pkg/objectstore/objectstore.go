// Package objectstore talks to a B2-style object storage service over
// its native HTTP API: authorize once, fetch an upload URL per upload,
// and stream downloads back to the caller.
package objectstore

import (
	"context"
	"crypto/sha1" //nolint:gosec // the storage API mandates SHA-1 checksums
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	imrocreq "github.com/imroc/req/v3"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/pkg/config"
)

type Client struct {
	req       *imrocreq.Client
	streamReq *imrocreq.Client

	baseURL string
	keyID   string
	appKey  string
	bucket  string

	mu   sync.Mutex
	auth *authState
}

type authState struct {
	token       string
	apiURL      string
	downloadURL string
	bucketID    string
	obtainedAt  time.Time
}

// UploadResult is the metadata persisted on the project file record.
type UploadResult struct {
	FileID   string
	FileName string
	URL      string
}

var (
	once   sync.Once
	client *Client
)

func GetClient() *Client {
	once.Do(func() {
		osConfig := config.GetConfig().ObjectStore
		client = &Client{
			req:       imrocreq.C(),
			streamReq: imrocreq.C().DisableAutoReadResponse(),
			baseURL:   osConfig.BaseURL,
			keyID:     osConfig.KeyID,
			appKey:    osConfig.AppKey,
			bucket:    osConfig.Bucket,
		}
	})
	return client
}

// tokens are valid for 24h; re-authorize well before that
const authTTL = 20 * time.Hour

func (c *Client) authorized(ctx context.Context) (*authState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth != nil && time.Since(c.auth.obtainedAt) < authTTL {
		return c.auth, nil
	}

	var authResp struct {
		AuthorizationToken string `json:"authorizationToken"`
		APIURL             string `json:"apiUrl"`
		DownloadURL        string `json:"downloadUrl"`
		Allowed            struct {
			BucketID string `json:"bucketId"`
		} `json:"allowed"`
	}
	resp, err := c.req.R().
		SetContext(ctx).
		SetBasicAuth(c.keyID, c.appKey).
		SetSuccessResult(&authResp).
		Get(c.baseURL + "/b2api/v2/b2_authorize_account")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("authorize account: %s", resp.Status)
	}

	c.auth = &authState{
		token:       authResp.AuthorizationToken,
		apiURL:      authResp.APIURL,
		downloadURL: authResp.DownloadURL,
		bucketID:    authResp.Allowed.BucketID,
		obtainedAt:  time.Now(),
	}
	klog.Info("object storage authorized")
	return c.auth, nil
}

// Upload stores the given bytes under fileName and returns the metadata
// of the stored object.
func (c *Client) Upload(ctx context.Context, fileName, contentType string, data []byte) (*UploadResult, error) {
	auth, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var uploadTarget struct {
		UploadURL          string `json:"uploadUrl"`
		AuthorizationToken string `json:"authorizationToken"`
	}
	resp, err := c.req.R().
		SetContext(ctx).
		SetHeader("Authorization", auth.token).
		SetBodyJsonMarshal(map[string]string{"bucketId": auth.bucketID}).
		SetSuccessResult(&uploadTarget).
		Post(auth.apiURL + "/b2api/v2/b2_get_upload_url")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("get upload url: %s", resp.Status)
	}

	checksum := sha1.Sum(data) //nolint:gosec // see package comment
	var uploaded struct {
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
	}
	resp, err = c.req.R().
		SetContext(ctx).
		SetHeader("Authorization", uploadTarget.AuthorizationToken).
		SetHeader("X-Bz-File-Name", url.PathEscape(fileName)).
		SetHeader("Content-Type", contentType).
		SetHeader("X-Bz-Content-Sha1", hex.EncodeToString(checksum[:])).
		SetBodyBytes(data).
		SetSuccessResult(&uploaded).
		Post(uploadTarget.UploadURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("upload %s: %s", fileName, resp.Status)
	}

	return &UploadResult{
		FileID:   uploaded.FileID,
		FileName: uploaded.FileName,
		URL:      fmt.Sprintf("%s/file/%s/%s", auth.downloadURL, c.bucket, fileName),
	}, nil
}

// Download streams the named object. The caller must close the reader.
func (c *Client) Download(ctx context.Context, fileName string) (io.ReadCloser, string, error) {
	auth, err := c.authorized(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.streamReq.R().
		SetContext(ctx).
		SetHeader("Authorization", auth.token).
		Get(fmt.Sprintf("%s/file/%s/%s", auth.downloadURL, c.bucket, url.PathEscape(fileName)))
	if err != nil {
		return nil, "", err
	}
	if !resp.IsSuccessState() {
		resp.Body.Close()
		return nil, "", fmt.Errorf("download %s: %s", fileName, resp.Status)
	}
	return resp.Body, resp.GetHeader("Content-Type"), nil
}
