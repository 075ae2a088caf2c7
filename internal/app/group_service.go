package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"phishguard-engine/internal/domain"
)

// codeAlphabet omits visually ambiguous characters (0/O, 1/I/L), leaving 31
// symbols. At length 6 that is roughly 9e8 codes, so a collision between two
// concurrent creates is accepted as astronomically unlikely rather than
// engineered away.
const (
	codeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	maxCodeAttempts = 10
)

// GroupService allocates short join codes and manages group membership.
type GroupService struct {
	store ProfileStore
	log   *zap.Logger
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGroupService builds a group service. rnd may be seeded for
// deterministic tests; nil means a time-seeded source.
func NewGroupService(store ProfileStore, rnd *rand.Rand, log *zap.Logger) *GroupService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupService{
		store: store,
		log:   log,
		now:   time.Now,
		rnd:   rnd,
	}
}

func (g *GroupService) generateCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[g.rnd.Intn(len(codeAlphabet))]
	}
	return string(code)
}

// CreateGroup allocates a free code with bounded check-then-insert retries,
// inserts the group with the owner as its first member, and records the code
// on the owner's profile. Exhausting the retry bound returns
// ErrCodeExhausted, which callers surface as a "try again" rather than a
// hard failure.
func (g *GroupService) CreateGroup(ctx context.Context, ownerID, ownerName string) (domain.Group, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := g.generateCode()

		_, err := g.store.FindGroupByCode(ctx, code)
		switch {
		case err == nil:
			g.log.Debug("group code collision, regenerating",
				zap.String("code", code), zap.Int("attempt", attempt+1))
			continue
		case !errors.Is(err, domain.ErrGroupNotFound):
			return domain.Group{}, fmt.Errorf("check group code: %w", err)
		}

		group := domain.Group{
			Code:      code,
			OwnerID:   ownerID,
			Members:   []string{ownerID},
			CreatedAt: g.now(),
		}
		if err := g.store.InsertGroup(ctx, group); err != nil {
			return domain.Group{}, fmt.Errorf("insert group: %w", err)
		}
		if err := g.setProfileGroupCode(ctx, ownerID, ownerName, code); err != nil {
			return domain.Group{}, err
		}
		return group, nil
	}

	g.log.Warn("group code allocation exhausted", zap.Int("attempts", maxCodeAttempts))
	return domain.Group{}, domain.ErrCodeExhausted
}

// JoinGroup adds the user to the group's member set. Joining a group you are
// already in is a no-op.
func (g *GroupService) JoinGroup(ctx context.Context, userID, displayName, code string) (domain.Group, error) {
	group, err := g.store.FindGroupByCode(ctx, code)
	if err != nil {
		return domain.Group{}, err
	}

	if !group.HasMember(userID) {
		group.Members = append(group.Members, userID)
		if err := g.store.UpdateGroupMembers(ctx, code, group.Members); err != nil {
			return domain.Group{}, fmt.Errorf("update members: %w", err)
		}
	}
	if err := g.setProfileGroupCode(ctx, userID, displayName, code); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// LeaveGroup removes the user from the member set if present and clears the
// profile's group code either way, so a profile pointing at a group it is
// not a member of gets cleaned up.
func (g *GroupService) LeaveGroup(ctx context.Context, userID, code string) error {
	group, err := g.store.FindGroupByCode(ctx, code)
	if err == nil && group.HasMember(userID) {
		members := group.Members[:0:0]
		for _, m := range group.Members {
			if m != userID {
				members = append(members, m)
			}
		}
		if err := g.store.UpdateGroupMembers(ctx, code, members); err != nil {
			return fmt.Errorf("update members: %w", err)
		}
	} else if err != nil && !errors.Is(err, domain.ErrGroupNotFound) {
		return err
	}

	empty := ""
	update := domain.ProfileUpdate{GroupCode: &empty}
	if err := g.store.WriteProfile(ctx, userID, update); err != nil {
		return fmt.Errorf("clear group code: %w", err)
	}
	return nil
}

func (g *GroupService) setProfileGroupCode(ctx context.Context, userID, displayName, code string) error {
	update := domain.ProfileUpdate{GroupCode: &code}
	if displayName != "" {
		update.DisplayName = &displayName
	}
	if err := g.store.WriteProfile(ctx, userID, update); err != nil {
		return fmt.Errorf("set group code: %w", err)
	}
	return nil
}
