package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
)

const rankPath = "/v1/line-rankings"

// Client 产线推荐服务客户端，实现 planning.LineRanker
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建推荐服务客户端；timeout <= 0 时使用 30 秒
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// baseResponse 推荐服务统一响应
type baseResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type rankResponse struct {
	baseResponse
	Data struct {
		Lines []planning.RankedLine `json:"lines"`
	} `json:"data"`
}

// Rank asks the advisor to order the candidate lines for a style.
func (c *Client) Rank(ctx context.Context, req planning.RankRequest) ([]planning.RankedLine, error) {
	var resp rankResponse
	if err := c.doRequest(ctx, http.MethodPost, rankPath, req, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Lines, nil
}

// doRequest 执行推荐服务请求
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read advisor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("advisor returned HTTP %d (path=%s)", resp.StatusCode, path)
	}

	var base baseResponse
	if err := json.Unmarshal(respBody, &base); err != nil {
		return fmt.Errorf("decode advisor response: %w", err)
	}
	if base.Code != 0 {
		return fmt.Errorf("advisor error[%d]: %s (path=%s)", base.Code, base.Msg, path)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode advisor response: %w", err)
		}
	}
	return nil
}
