package authz

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	adminSubject    = "admin:"
	rolePrefix      = "role:"
	// roleAnchor 让空策略的角色也在分组表中存在
	roleAnchor = "role:__anchor__"
)

// rbacModel 主体可直接持有策略，也可经角色继承；资源按 keyMatch2 匹配
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	errUnavailable     = errors.New("authz service unavailable")
	errAdminIDRequired = errors.New("admin id is required")
)

// Policy 一条授权策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 管理端 RBAC，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready(adminID uint) error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}
	if adminID == 0 {
		return errAdminIDRequired
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 act 访问 obj
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	if err := s.ready(adminID); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(obj), NormalizeAction(act))
}

// SetAdminRoles 覆盖管理员的角色集合
func (s *Service) SetAdminRoles(adminID uint, roles []Role) error {
	if err := s.ready(adminID); err != nil {
		return err
	}
	for _, role := range roles {
		if _, ok := role.Profile(); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}
	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles: %w", err)
	}
	for _, role := range roles {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role.subject()); err != nil {
			return fmt.Errorf("assign admin role %s: %w", role, err)
		}
	}
	return nil
}

// GetAdminRoles 管理员直接持有的角色，按名称排序
func (s *Service) GetAdminRoles(adminID uint) ([]Role, error) {
	if err := s.ready(adminID); err != nil {
		return nil, err
	}
	subjects, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles: %w", err)
	}
	roles := make([]Role, 0, len(subjects))
	for _, subject := range subjects {
		if subject == roleAnchor || !strings.HasPrefix(subject, rolePrefix) {
			continue
		}
		if role, err := ParseRole(subject); err == nil {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles, nil
}

// GetAdminPolicies 管理员生效的全部策略，包含经角色继承得到的
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	if err := s.ready(adminID); err != nil {
		return nil, err
	}
	subject := SubjectForAdmin(adminID)
	inherited, err := s.enforcer.GetImplicitRolesForUser(subject)
	if err != nil {
		return nil, fmt.Errorf("get implicit roles: %w", err)
	}

	seen := map[Policy]struct{}{}
	for _, holder := range append([]string{subject}, inherited...) {
		if holder == roleAnchor {
			continue
		}
		rules, err := s.enforcer.GetFilteredPolicy(0, holder)
		if err != nil {
			return nil, fmt.Errorf("get policies for %s: %w", holder, err)
		}
		for _, rule := range rules {
			if len(rule) < 3 {
				continue
			}
			seen[Policy{
				Subject: strings.TrimSpace(rule[0]),
				Object:  NormalizeObject(rule[1]),
				Action:  NormalizeAction(rule[2]),
			}] = struct{}{}
		}
	}

	policies := make([]Policy, 0, len(seen))
	for policy := range seen {
		policies = append(policies, policy)
	}
	sort.Slice(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
	return policies, nil
}

// SubjectForAdmin 管理员在策略中的主体名，如 admin:7
func SubjectForAdmin(adminID uint) string {
	return adminSubject + strconv.FormatUint(uint64(adminID), 10)
}

// NormalizeObject 资源路径去掉 /api/v1 前缀并保证以 / 开头
func NormalizeObject(object string) string {
	object = strings.TrimSpace(object)
	if !strings.HasPrefix(object, "/") {
		object = "/" + object
	}
	if object == apiV1Prefix {
		return "/"
	}
	if rest, ok := strings.CutPrefix(object, apiV1Prefix+"/"); ok {
		return "/" + rest
	}
	return object
}

// NormalizeAction 动作统一为大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
