package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     Role
	Inherits []Role
	Policies []Policy
}

// BuiltinRoleSeeds 由角色配置表生成的预置矩阵
func BuiltinRoleSeeds() []RoleSeed {
	seeds := make([]RoleSeed, 0, len(allRoles))
	for _, role := range allRoles {
		profile := roleProfiles[role]
		seeds = append(seeds, RoleSeed{
			Role:     role,
			Inherits: profile.Inherits,
			Policies: profile.Policies,
		})
	}
	return seeds
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}

	for _, seed := range BuiltinRoleSeeds() {
		subject := seed.Role.subject()
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, roleAnchor); err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}

		for _, parent := range seed.Inherits {
			if _, ok := parent.Profile(); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownRole, parent)
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, parent.subject()); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(subject, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
