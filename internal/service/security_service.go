package service

import (
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/cache"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

// 安全日志事件类型
const (
	SecurityEventLoginSuccess      = "login_success"
	SecurityEventLoginFailed       = "login_failed"
	SecurityEventLoginThrottled    = "login_throttled"
	SecurityEventTwoFactorEnabled  = "2fa_enabled"
	SecurityEventTwoFactorDisabled = "2fa_disabled"
	SecurityEventIPRuleAdded       = "ip_rule_added"
	SecurityEventIPRuleRemoved     = "ip_rule_removed"
)

const cacheKeyIPRules = "ip_rules"

var (
	ErrIPRuleInvalid  = errors.New("ip or cidr is invalid")
	ErrIPRuleAction   = errors.New("ip rule action must be block or allow")
	ErrIPRuleExists   = errors.New("ip rule already exists")
	ErrIPRuleNotFound = errors.New("ip rule not found")
)

type compiledRule struct {
	prefix netip.Prefix
	action string
}

// SecurityLogListResult 是安全日志的分页结果。
type SecurityLogListResult struct {
	Logs       []db.SecurityLog
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// SecurityService 记录安全事件并维护 IP 访问规则。
type SecurityService struct {
	db    *gorm.DB
	rules *cache.TTL[[]compiledRule]
}

// NewSecurityService creates a SecurityService; compiled IP rules are cached for ttl.
func NewSecurityService(gdb *gorm.DB, ttl time.Duration) *SecurityService {
	return &SecurityService{db: gdb, rules: cache.New[[]compiledRule](ttl)}
}

// Record 写入一条安全日志，失败只记录到应用日志。
func (s *SecurityService) Record(event, username, ip, detail string) {
	entry := db.SecurityLog{
		Event:    event,
		Username: strings.TrimSpace(username),
		IP:       strings.TrimSpace(ip),
		Detail:   strings.TrimSpace(detail),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("component", "security").Str("event", event).Msg("failed to record security log")
	}
}

// ListLogs returns security logs newest first, optionally filtered by event.
func (s *SecurityService) ListLogs(event string, page, perPage int) (*SecurityLogListResult, error) {
	result := &SecurityLogListResult{Page: normalizePage(page), PerPage: normalizePerPage(perPage, 50)}

	query := s.db.Model(&db.SecurityLog{})
	if event = strings.TrimSpace(event); event != "" {
		query = query.Where("event = ?", event)
	}
	if err := query.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	if err := query.Order("created_at desc, id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&result.Logs).Error; err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	return result, nil
}

// RecentFailures 统计 ip 在 since 之后的登录失败次数。
func (s *SecurityService) RecentFailures(ip string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&db.SecurityLog{}).
		Where("event = ? AND ip = ? AND created_at >= ?", SecurityEventLoginFailed, ip, since).
		Count(&count).Error
	return count, err
}

// ListRules returns every IP rule.
func (s *SecurityService) ListRules() ([]db.IPRule, error) {
	var rules []db.IPRule
	if err := s.db.Order("id asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// AddRule 新增规则，单个 IP 会被规范化为 /32 或 /128。
func (s *SecurityService) AddRule(raw, action, note, actor, actorIP string) (*db.IPRule, error) {
	prefix, err := parseRulePrefix(raw)
	if err != nil {
		return nil, err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action != db.IPRuleBlock && action != db.IPRuleAllow {
		return nil, ErrIPRuleAction
	}

	var count int64
	if err := s.db.Unscoped().Model(&db.IPRule{}).Where(&db.IPRule{CIDR: prefix.String()}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrIPRuleExists
	}

	rule := db.IPRule{CIDR: prefix.String(), Action: action, Note: strings.TrimSpace(note)}
	if err := s.db.Create(&rule).Error; err != nil {
		return nil, err
	}
	s.rules.Invalidate(cacheKeyIPRules)
	s.Record(SecurityEventIPRuleAdded, actor, actorIP, action+" "+rule.CIDR)
	return &rule, nil
}

// DeleteRule removes a rule permanently.
func (s *SecurityService) DeleteRule(id uint, actor, actorIP string) error {
	var rule db.IPRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIPRuleNotFound
		}
		return err
	}
	if err := s.db.Unscoped().Delete(&rule).Error; err != nil {
		return err
	}
	s.rules.Invalidate(cacheKeyIPRules)
	s.Record(SecurityEventIPRuleRemoved, actor, actorIP, rule.Action+" "+rule.CIDR)
	return nil
}

// IsBlocked 判断 ip 是否命中拦截规则，allow 规则优先于 block 规则。
func (s *SecurityService) IsBlocked(ip string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false, nil
	}
	addr = addr.Unmap()

	rules, err := s.rules.GetOrCompute(cacheKeyIPRules, s.loadRules)
	if err != nil {
		return false, err
	}

	blocked := false
	for _, rule := range rules {
		if !rule.prefix.Contains(addr) {
			continue
		}
		if rule.action == db.IPRuleAllow {
			return false, nil
		}
		blocked = true
	}
	return blocked, nil
}

func (s *SecurityService) loadRules() ([]compiledRule, error) {
	var rules []db.IPRule
	if err := s.db.Find(&rules).Error; err != nil {
		return nil, err
	}
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		prefix, err := parseRulePrefix(rule.CIDR)
		if err != nil {
			log.Warn().Str("cidr", rule.CIDR).Msg("skip invalid ip rule")
			continue
		}
		compiled = append(compiled, compiledRule{prefix: prefix, action: rule.Action})
	}
	return compiled, nil
}

func parseRulePrefix(raw string) (netip.Prefix, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Prefix{}, ErrIPRuleInvalid
	}
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, ErrIPRuleInvalid
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, ErrIPRuleInvalid
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
