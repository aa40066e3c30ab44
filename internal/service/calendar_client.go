package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure"
)

const defaultGoogleCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// 单页最多 250 条，一天内最多翻 10 页。
const (
	calendarPageSize = 250
	calendarMaxPages = 10
)

// CalendarSource 提供外部日历在某一天已占用的时段。
type CalendarSource interface {
	BusyTimes(ctx context.Context, day time.Time) ([]string, error)
}

// GoogleCalendarClient 通过 Google Calendar REST 接口读取事件。
type GoogleCalendarClient struct {
	http       httpDoer
	baseURL    string
	calendarID string
	token      string
}

type googleEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type googleEventList struct {
	Items []struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Start  googleEventTime `json:"start"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// NewGoogleCalendarClient 创建日历客户端，calendarID 或 token 为空时视为未配置。
func NewGoogleCalendarClient(calendarID, token string) *GoogleCalendarClient {
	return &GoogleCalendarClient{
		http:       &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultGoogleCalendarBaseURL,
		calendarID: strings.TrimSpace(calendarID),
		token:      strings.TrimSpace(token),
	}
}

// SetHTTPClient 替换 HTTP 客户端，主要用于测试。
func (c *GoogleCalendarClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	c.http = client
}

// SetBaseURL 覆盖 API 基础地址。
func (c *GoogleCalendarClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// Configured 判断是否具备调用条件。
func (c *GoogleCalendarClient) Configured() bool {
	return c != nil && c.calendarID != "" && c.token != ""
}

// BusyTimes 返回 day 所在日期内事件的开始时间（HH:MM，day 所在时区）。
// 全天事件与已取消事件不占用具体时段。
func (c *GoogleCalendarClient) BusyTimes(ctx context.Context, day time.Time) ([]string, error) {
	if !c.Configured() {
		return nil, failure.New(ErrNotConfigured, failure.Message("未配置 Google 日历"))
	}

	loc := day.Location()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	query := url.Values{}
	query.Set("timeMin", start.Format(time.RFC3339))
	query.Set("timeMax", end.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	query.Set("maxResults", strconv.Itoa(calendarPageSize))

	var list googleEventList
	for page := 0; page < calendarMaxPages; page++ {
		batch, err := c.fetchEvents(ctx, query)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, batch.Items...)
		if batch.NextPageToken == "" {
			break
		}
		query.Set("pageToken", batch.NextPageToken)
	}

	times := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Status == "cancelled" || item.Start.DateTime == "" {
			continue
		}
		startsAt, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		local := startsAt.In(loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}
		times = append(times, local.Format(slotTimeLayout))
	}

	return times, nil
}

func (c *GoogleCalendarClient) fetchEvents(ctx context.Context, query url.Values) (*googleEventList, error) {
	base := c.baseURL
	if base == "" {
		base = defaultGoogleCalendarBaseURL
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", base, url.PathEscape(c.calendarID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, failure.Translate(err, ErrUpstream)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := doUpstream(c.http, req, "Google Calendar")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, failure.Translate(err, ErrUpstream, failure.Message("读取 Google Calendar 响应失败"))
	}

	var list googleEventList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, failure.Translate(err, ErrUpstream, failure.Message("解析 Google Calendar 响应失败"))
	}
	return &list, nil
}
