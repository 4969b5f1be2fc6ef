package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"edusloth/app/handler"
	"edusloth/app/logger"
	"edusloth/app/model"

	"resty.dev/v3"
)

var (
	// ErrNotFound 资源不存在（服务端返回 404）
	ErrNotFound = errors.New("资源不存在")
	// ErrUnauthorized 令牌失效（服务端返回 401），已清除本地令牌
	ErrUnauthorized = errors.New("未登录或令牌已过期")
)

// Client EduSloth API 客户端
type Client struct {
	http   *resty.Client
	logger *logger.Logger

	mu    sync.RWMutex
	token string
}

// New 创建新的 API 客户端
func New(baseURL string, log *logger.Logger) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)

	return &Client{
		http:   c,
		logger: log,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.http.Close()
}

// Token 返回当前持有的访问令牌
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken 设置访问令牌（例如从本地存储恢复会话）
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// request 创建带令牌的请求
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// decode 解析统一响应结构，401 会清除令牌并返回 ErrUnauthorized
func (c *Client) decode(resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}

	switch resp.StatusCode() {
	case 401:
		c.clearToken()
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Bytes(), &envelope); err != nil {
		return fmt.Errorf("解析响应失败，状态码: %d: %w", resp.StatusCode(), err)
	}

	if resp.StatusCode() >= 400 || envelope.Code != 0 {
		return fmt.Errorf("请求失败，状态码: %d: %s", resp.StatusCode(), envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("解析响应数据失败: %w", err)
		}
	}
	return nil
}

// Login 登录并保存令牌
func (c *Client) Login(ctx context.Context, email, password string) (*handler.LoginResponse, error) {
	var result handler.LoginResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/api/auth/login")
	if err := c.decode(resp, err, &result); err != nil {
		return nil, err
	}

	c.SetToken(result.Token)
	return &result, nil
}

// Register 注册新用户
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).
		SetBody(map[string]string{
			"email":     email,
			"password":  password,
			"full_name": fullName,
		}).
		Post("/api/auth/register")
	if err := c.decode(resp, err, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me 获取当前用户信息
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).Get("/api/users/me")
	if err := c.decode(resp, err, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe 更新当前用户信息
func (c *Client) UpdateMe(ctx context.Context, req handler.UpdateMeRequest) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).SetBody(req).Put("/api/users/me")
	if err := c.decode(resp, err, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadContent 上传学习内容（multipart）
func (c *Client) UploadContent(ctx context.Context, title, description, contentType, filename string, file io.Reader) (*model.Content, error) {
	var content model.Content
	resp, err := c.request(ctx).
		SetFormData(map[string]string{
			"title":        title,
			"description":  description,
			"content_type": contentType,
		}).
		SetFileReader("file", filename, file).
		Post("/api/content/upload")
	if err := c.decode(resp, err, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// ListContent 分页获取学习内容列表
func (c *Client) ListContent(ctx context.Context, skip, limit int) ([]model.Content, error) {
	var contents []model.Content
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"skip":  fmt.Sprintf("%d", skip),
			"limit": fmt.Sprintf("%d", limit),
		}).
		Get("/api/content")
	if err := c.decode(resp, err, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// GetContent 获取学习内容详情
func (c *Client) GetContent(ctx context.Context, contentID string) (*model.ContentDetail, error) {
	var detail model.ContentDetail
	resp, err := c.request(ctx).Get("/api/content/" + contentID)
	if err := c.decode(resp, err, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteContent 删除学习内容
func (c *Client) DeleteContent(ctx context.Context, contentID string) error {
	resp, err := c.request(ctx).Delete("/api/content/" + contentID)
	return c.decode(resp, err, nil)
}

// StartTranscription 发起转写任务
func (c *Client) StartTranscription(ctx context.Context, contentID string) (*model.Transcription, error) {
	var t model.Transcription
	resp, err := c.request(ctx).Post("/api/transcription/" + contentID + "/start")
	if err := c.decode(resp, err, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTranscription 查询转写任务状态；不存在时返回 ErrNotFound
func (c *Client) GetTranscription(ctx context.Context, contentID string) (*model.Transcription, error) {
	var t model.Transcription
	resp, err := c.request(ctx).Get("/api/transcription/" + contentID)
	if err := c.decode(resp, err, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// StartGeneration 发起 AI 生成任务
func (c *Client) StartGeneration(ctx context.Context, contentID, generationType string) (*model.GeneratedContent, error) {
	var g model.GeneratedContent
	resp, err := c.request(ctx).Post("/api/ai/generate/" + contentID + "/" + generationType)
	if err := c.decode(resp, err, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGeneration 查询某类型的生成结果；不存在时返回 ErrNotFound
func (c *Client) GetGeneration(ctx context.Context, contentID, generationType string) (*model.GeneratedContent, error) {
	var g model.GeneratedContent
	resp, err := c.request(ctx).Get("/api/ai/generated/" + contentID + "/" + generationType)
	if err := c.decode(resp, err, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGenerations 获取内容的全部生成结果
func (c *Client) ListGenerations(ctx context.Context, contentID string) ([]model.GeneratedContent, error) {
	var gs []model.GeneratedContent
	resp, err := c.request(ctx).Get("/api/ai/generated/" + contentID)
	if err := c.decode(resp, err, &gs); err != nil {
		return nil, err
	}
	return gs, nil
}

// ListReminders 获取提醒列表
func (c *Client) ListReminders(ctx context.Context, includeCompleted bool) ([]model.Reminder, error) {
	var rs []model.Reminder
	req := c.request(ctx)
	if includeCompleted {
		req.SetQueryParam("include_completed", "true")
	}
	resp, err := req.Get("/api/reminders")
	if err := c.decode(resp, err, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// UpcomingReminders 获取未来 days 天内到期的提醒
func (c *Client) UpcomingReminders(ctx context.Context, days int) ([]model.Reminder, error) {
	var rs []model.Reminder
	resp, err := c.request(ctx).
		SetQueryParam("days", fmt.Sprintf("%d", days)).
		Get("/api/reminders/upcoming")
	if err := c.decode(resp, err, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// CreateReminder 创建提醒
func (c *Client) CreateReminder(ctx context.Context, req handler.CreateReminderRequest) (*model.Reminder, error) {
	var r model.Reminder
	resp, err := c.request(ctx).SetBody(req).Post("/api/reminders")
	if err := c.decode(resp, err, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReminder 更新提醒
func (c *Client) UpdateReminder(ctx context.Context, reminderID string, req handler.UpdateReminderRequest) (*model.Reminder, error) {
	var r model.Reminder
	resp, err := c.request(ctx).SetBody(req).Put("/api/reminders/" + reminderID)
	if err := c.decode(resp, err, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReminder 删除提醒
func (c *Client) DeleteReminder(ctx context.Context, reminderID string) error {
	resp, err := c.request(ctx).Delete("/api/reminders/" + reminderID)
	return c.decode(resp, err, nil)
}

// StartJob 实现轮询器的任务发起接口
func (c *Client) StartJob(ctx context.Context, key JobKey) error {
	if key.GenerationType == "" {
		_, err := c.StartTranscription(ctx, key.ContentID)
		return err
	}
	_, err := c.StartGeneration(ctx, key.ContentID, key.GenerationType)
	return err
}

// FetchJob 实现轮询器的任务查询接口：
// 生成类型为空时查询转写任务，否则查询对应类型的生成任务。
func (c *Client) FetchJob(ctx context.Context, key JobKey) (*JobView, error) {
	if key.GenerationType == "" {
		t, err := c.GetTranscription(ctx, key.ContentID)
		if err != nil {
			return nil, err
		}
		return &JobView{
			Status:        t.Status,
			Error:         t.Error,
			Transcription: t,
		}, nil
	}

	g, err := c.GetGeneration(ctx, key.ContentID, key.GenerationType)
	if err != nil {
		return nil, err
	}
	return &JobView{
		Status:     g.Status,
		Error:      g.Error,
		Generation: g,
	}, nil
}
