// Package schedule 提供本地文件与 HTTP 两种赛程来源，读取 PDF 抽取后的 JSON 行。
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"LA28Sync/internal/adapter"
	"LA28Sync/internal/config"
	"LA28Sync/internal/interfaces"
	"LA28Sync/internal/model"
	"LA28Sync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// 来源类型（schedule.source）
const (
	KindFile = "file"
	KindHTTP = "http"
)

func init() {
	adapter.Register(KindFile, NewFileSource)
	adapter.Register(KindHTTP, NewHTTPSource)
}

// FileSource 读取本地 JSON 文件
type FileSource struct {
	path   string
	logger *logrus.Logger
}

func NewFileSource(cfg *config.ScheduleConfig, logger *logrus.Logger) interfaces.ScheduleSource {
	return &FileSource{path: cfg.Path, logger: logger}
}

func (s *FileSource) Name() string { return KindFile + ":" + s.path }

func (s *FileSource) FetchRows(ctx context.Context) ([]model.RawScheduleRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开赛程文件失败: %w", err)
	}
	defer f.Close()

	rows, err := decodeRows(f)
	if err != nil {
		return nil, fmt.Errorf("解析赛程文件%s失败: %w", s.path, err)
	}
	s.logger.WithFields(logrus.Fields{"path": s.path, "rows": len(rows)}).Info("读取赛程文件完成")
	return rows, nil
}

// HTTPSource 从远程地址拉取 JSON
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewHTTPSource(cfg *config.ScheduleConfig, logger *logrus.Logger) interfaces.ScheduleSource {
	return &HTTPSource{
		url:        cfg.URL,
		httpClient: httpclient.NewHTTPClient(cfg.HTTPOptions(), logger),
		logger:     logger,
	}
}

func (s *HTTPSource) Name() string { return KindHTTP + ":" + s.url }

// Client 暴露底层客户端（测试中挂载 httpmock）
func (s *HTTPSource) Client() *http.Client { return s.httpClient }

func (s *HTTPSource) FetchRows(ctx context.Context) ([]model.RawScheduleRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求赛程失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("请求赛程失败，状态码%d: %s", resp.StatusCode, string(body))
	}
	rows, err := decodeRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析远程赛程失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"url": s.url, "rows": len(rows)}).Info("拉取远程赛程完成")
	return rows, nil
}

func decodeRows(r io.Reader) ([]model.RawScheduleRow, error) {
	var rows []model.RawScheduleRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
