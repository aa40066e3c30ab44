package service

import (
	"errors"
	"strings"
	"time"

	"github.com/showcase/internal/cache"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrMenuInvalid      = errors.New("menu must be header or footer")
	ErrMenuLabelMissing = errors.New("menu label is required")
	ErrMenuParentLoop   = errors.New("menu parent is invalid")
	ErrMenuOrder        = errors.New("menu order is invalid")
)

const (
	MenuHeader = "header"
	MenuFooter = "footer"
)

// MenuItemInput represents fields accepted when creating or updating a menu item.
type MenuItemInput struct {
	Menu      string `json:"menu"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	ParentID  uint   `json:"parentId"`
	SortOrder int    `json:"sortOrder"`
	Active    bool   `json:"active"`
}

// MenuNode 是前台导航树上的一个节点。
type MenuNode struct {
	ID       uint       `json:"id"`
	Label    string     `json:"label"`
	URL      string     `json:"url"`
	Children []MenuNode `json:"children,omitempty"`
}

// MenuService manages header and footer navigation; trees are cached per menu.
type MenuService struct {
	db    *gorm.DB
	cache *cache.TTL[[]MenuNode]
}

// NewMenuService creates a MenuService instance.
func NewMenuService(gdb *gorm.DB, ttl time.Duration) *MenuService {
	return &MenuService{db: gdb, cache: cache.New[[]MenuNode](ttl)}
}

func normalizeMenu(menu string) (string, error) {
	switch menu = strings.ToLower(strings.TrimSpace(menu)); menu {
	case MenuHeader, MenuFooter:
		return menu, nil
	default:
		return "", ErrMenuInvalid
	}
}

func menuCacheKey(menu string) string {
	return "menu:" + menu
}

// Tree returns the active items of menu as a tree ordered by sort order.
// 父节点未启用时其子节点一并隐藏。
func (s *MenuService) Tree(menu string) ([]MenuNode, error) {
	menu, err := normalizeMenu(menu)
	if err != nil {
		return nil, err
	}

	return s.cache.GetOrCompute(menuCacheKey(menu), func() ([]MenuNode, error) {
		var items []db.MenuItem
		if err := s.db.Where("menu = ? AND active = ?", menu, true).
			Order("sort_order asc").Order("id asc").
			Find(&items).Error; err != nil {
			return nil, err
		}
		return buildMenuTree(items, 0), nil
	})
}

func buildMenuTree(items []db.MenuItem, parentID uint) []MenuNode {
	nodes := make([]MenuNode, 0)
	for _, item := range items {
		if item.ParentID != parentID || item.ID == parentID {
			continue
		}
		nodes = append(nodes, MenuNode{
			ID:       item.ID,
			Label:    item.Label,
			URL:      item.URL,
			Children: buildMenuTree(items, item.ID),
		})
	}
	return nodes
}

// ListAll returns every item of menu for the admin; an empty menu lists both.
func (s *MenuService) ListAll(menu string) ([]db.MenuItem, error) {
	query := s.db.Model(&db.MenuItem{})
	if strings.TrimSpace(menu) != "" {
		normalized, err := normalizeMenu(menu)
		if err != nil {
			return nil, err
		}
		query = query.Where("menu = ?", normalized)
	}

	var items []db.MenuItem
	if err := query.Order("menu asc").Order("sort_order asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a menu item by id.
func (s *MenuService) Get(id uint) (*db.MenuItem, error) {
	var item db.MenuItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new menu item.
func (s *MenuService) Create(input MenuItemInput) (*db.MenuItem, error) {
	item := &db.MenuItem{}
	if err := s.apply(item, input); err != nil {
		return nil, err
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(menuCacheKey(item.Menu))
	return item, nil
}

// Update modifies an existing menu item.
func (s *MenuService) Update(id uint, input MenuItemInput) (*db.MenuItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	previousMenu := item.Menu
	if err := s.apply(item, input); err != nil {
		return nil, err
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	s.cache.Invalidate(menuCacheKey(previousMenu), menuCacheKey(item.Menu))
	return item, nil
}

// Delete removes a menu item together with its children.
func (s *MenuService) Delete(id uint) error {
	item, err := s.Get(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&db.MenuItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.MenuItem{}, id).Error
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(menuCacheKey(item.Menu))
	return nil
}

// Reorder assigns sort order by position in ids.
func (s *MenuService) Reorder(menu string, ids []uint) error {
	menu, err := normalizeMenu(menu)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return ErrMenuOrder
		}
		if _, ok := seen[id]; ok {
			return ErrMenuOrder
		}
		seen[id] = struct{}{}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for idx, id := range ids {
			result := tx.Model(&db.MenuItem{}).Where("id = ? AND menu = ?", id, menu).Update("sort_order", idx)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrMenuItemNotFound
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(menuCacheKey(menu))
	return nil
}

func (s *MenuService) apply(item *db.MenuItem, input MenuItemInput) error {
	menu, err := normalizeMenu(input.Menu)
	if err != nil {
		return err
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return ErrMenuLabelMissing
	}

	if input.ParentID != 0 {
		if item.ID != 0 && input.ParentID == item.ID {
			return ErrMenuParentLoop
		}
		parent, err := s.Get(input.ParentID)
		if err != nil {
			if errors.Is(err, ErrMenuItemNotFound) {
				return ErrMenuParentLoop
			}
			return err
		}
		// 只支持两级菜单
		if parent.Menu != menu || parent.ParentID != 0 {
			return ErrMenuParentLoop
		}
	}

	item.Menu = menu
	item.Label = label
	item.URL = strings.TrimSpace(input.URL)
	item.ParentID = input.ParentID
	item.SortOrder = input.SortOrder
	item.Active = input.Active
	return nil
}
