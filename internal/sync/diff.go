package sync

// Plan is the outcome of comparing desired entities with stored rows.
type Plan struct {
	Entries []DiffEntry

	Creates int
	Updates int
	Skipped int
}

// Diff compares desired with stored under policy.
//
// A desired entity without a stored row is created unless the policy is
// ignore. One whose hash differs from its stored row is updated under merge
// only. Stored rows without a desired counterpart never appear in the plan,
// so a partial import leaves other sections alone. Entries follow the order
// of desired.
func Diff[T Syncable](entityType string, policy Policy, desired, stored []T) Plan {
	hashes := make(map[string]uint64, len(stored))
	for _, s := range stored {
		hashes[s.SyncKey()] = s.SyncHash()
	}

	plan := Plan{Entries: make([]DiffEntry, 0, len(desired))}
	for _, d := range desired {
		e := DiffEntry{
			Key:         d.SyncKey(),
			EntityType:  entityType,
			DesiredHash: d.SyncHash(),
		}

		storedHash, exists := hashes[e.Key]
		e.StoredHash = storedHash
		e.Action, e.Reason = decide(policy, exists, e.DesiredHash == storedHash)

		switch e.Action {
		case ActionCreate:
			plan.Creates++
		case ActionUpdate:
			plan.Updates++
		default:
			plan.Skipped++
		}
		plan.Entries = append(plan.Entries, e)
	}
	return plan
}

func decide(policy Policy, exists, same bool) (Action, string) {
	switch {
	case !exists && ShouldCreate(policy):
		return ActionCreate, "new entity"
	case !exists:
		return ActionSkip, "policy: " + string(policy)
	case same:
		return ActionSkip, "unchanged"
	case ShouldUpdate(policy):
		return ActionUpdate, "content changed"
	default:
		return ActionSkip, "policy: " + string(policy)
	}
}

// HasChanges reports whether the plan writes anything.
func (p Plan) HasChanges() bool {
	return p.Creates > 0 || p.Updates > 0
}

// Total is the number of planned entries.
func (p Plan) Total() int {
	return len(p.Entries)
}
