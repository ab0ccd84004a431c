package world

// AdvanceQuests auto-completes any active objective satisfied by c's current
// state. This is a supplemental feature beyond the base wire protocol: it
// introduces no new message type and runs as a plain function call at the
// end of PLAYER_MOVE and USE_ITEM, under the same lock that guards the
// handler's other mutations, before that handler takes its broadcast
// snapshot.
//
// reach_location objectives complete when c's position equals the
// objective's target position. defeat/collect objectives complete when
// RequiredFlag is present in c.ActiveFlags — set by a flag_modifier effect
// from USE_ITEM or (eventually) combat resolution. A quest is marked
// completed once every one of its objectives is.
//
// Returns the ids of quests that transitioned to completed on this call.
func AdvanceQuests(c *Character) []string {
	var justCompleted []string

	for qi := range c.Quests {
		q := &c.Quests[qi]
		if q.Status != QuestActive {
			continue
		}

		allDone := true
		for oi := range q.Objectives {
			obj := &q.Objectives[oi]
			if !obj.Completed {
				if objectiveSatisfied(obj, c) {
					obj.Completed = true
				}
			}
			if !obj.Completed {
				allDone = false
			}
		}

		if allDone {
			q.Status = QuestCompleted
			justCompleted = append(justCompleted, q.ID)
		}
	}

	return justCompleted
}

func objectiveSatisfied(obj *Objective, c *Character) bool {
	switch obj.Type {
	case ObjectiveReachLocation:
		return obj.TargetPosSet && c.X == obj.TargetX && c.Y == obj.TargetY
	case ObjectiveDefeat, ObjectiveCollect:
		return obj.RequiredFlag != "" && c.HasFlag(obj.RequiredFlag)
	default:
		return false
	}
}
