package command

import (
	"fmt"
	"math/rand"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/worldgen"
)

// HandleMove applies PLAYER_MOVE (spec.md §4.6): rejects a step outside
// [-1,1] in either axis, or a destination that is out of bounds or
// impassable. On success it mutates c.X/c.Y only — fog reveal and quest
// auto-completion are the caller's job, since both need the world lock
// the caller already holds and neither belongs to input validation.
func HandleMove(st *world.State, c *world.Character, p PlayerMovePayload) error {
	if p.DX < -1 || p.DX > 1 || p.DY < -1 || p.DY > 1 {
		return fmt.Errorf("move step (%d,%d) exceeds one tile", p.DX, p.DY)
	}
	nx, ny := c.X+p.DX, c.Y+p.DY
	if !st.InBounds(nx, ny) {
		return fmt.Errorf("destination (%d,%d) is out of bounds", nx, ny)
	}
	if !world.IsPassable(st.BiomeAt(nx, ny)) {
		return fmt.Errorf("destination (%d,%d) is impassable", nx, ny)
	}
	c.X, c.Y = nx, ny
	return nil
}

// HandleEquip applies EQUIP_ITEM (spec.md §4.6). The item must be in
// inventory and not a consumable or misc item. If the target slot is
// occupied, the current occupant is displaced back into inventory first.
func HandleEquip(c *world.Character, p EquipItemPayload) error {
	idx, item := findInventoryItem(c, p.ItemID)
	if idx < 0 {
		return fmt.Errorf("item %q is not in inventory", p.ItemID)
	}
	if item.Slot == world.SlotConsumable || item.Slot == world.SlotMisc {
		return fmt.Errorf("item %q cannot be equipped", p.ItemID)
	}

	if occupant, ok := c.Equipment[item.Slot]; ok {
		c.Inventory = append(c.Inventory, occupant)
	}
	c.Inventory = removeInventoryItemAt(c, idx)
	if c.Equipment == nil {
		c.Equipment = map[string]world.Item{}
	}
	c.Equipment[item.Slot] = item
	return nil
}

// HandleUnequip applies UNEQUIP_ITEM (spec.md §4.6): the slot must be
// occupied; its occupant moves back to inventory.
func HandleUnequip(c *world.Character, p UnequipItemPayload) error {
	item, ok := c.Equipment[p.Slot]
	if !ok {
		return fmt.Errorf("slot %q is not occupied", p.Slot)
	}
	delete(c.Equipment, p.Slot)
	c.Inventory = append(c.Inventory, item)
	return nil
}

// HandleUseItem applies USE_ITEM (spec.md §4.6): item must be in
// inventory with slot=consumable. Every on_use effect is applied; the
// item is consumed only if at least one effect actually applied.
func HandleUseItem(c *world.Character, p UseItemPayload, rng *rand.Rand) error {
	idx, item := findInventoryItem(c, p.ItemID)
	if idx < 0 {
		return fmt.Errorf("item %q is not in inventory", p.ItemID)
	}
	if item.Slot != world.SlotConsumable {
		return fmt.Errorf("item %q is not a consumable", p.ItemID)
	}

	applied := world.ApplyOnUseEffects(c, item.Effects, rng)
	if applied > 0 {
		c.Inventory = removeInventoryItemAt(c, idx)
	}
	return nil
}

// HandleDiscard applies DISCARD_ITEM: the wire envelope lists this type
// (spec.md §4.1) without a corresponding handler spec in §4.6; grounded on
// equip/unequip/use's shared "must be in inventory" precondition, it
// simply removes the item.
func HandleDiscard(c *world.Character, p DiscardItemPayload) error {
	idx, _ := findInventoryItem(c, p.ItemID)
	if idx < 0 {
		return fmt.Errorf("item %q is not in inventory", p.ItemID)
	}
	c.Inventory = removeInventoryItemAt(c, idx)
	return nil
}

// HandleEnteredPOI applies PLAYER_ENTERED_POI (spec.md §4.6): a no-op if
// the POI was already visited; otherwise records the visit and, on the
// POI's first-ever visit by any character, generates and persists its
// description exactly once.
func HandleEnteredPOI(st *world.State, c *world.Character, p PlayerEnteredPOIPayload, rng *rand.Rand) error {
	poi := st.POIByID(p.POIID)
	if poi == nil {
		return fmt.Errorf("poi %q does not exist", p.POIID)
	}
	if c.HasVisited(p.POIID) {
		return nil
	}
	c.VisitedPOIs = append(c.VisitedPOIs, p.POIID)
	if poi.Description == "" {
		poi.Description = worldgen.GeneratePOIDescription(poi, rng)
	}
	return nil
}

func findInventoryItem(c *world.Character, itemID string) (int, world.Item) {
	for i, item := range c.Inventory {
		if item.ID == itemID {
			return i, item
		}
	}
	return -1, world.Item{}
}

func removeInventoryItemAt(c *world.Character, idx int) []world.Item {
	out := make([]world.Item, 0, len(c.Inventory)-1)
	out = append(out, c.Inventory[:idx]...)
	out = append(out, c.Inventory[idx+1:]...)
	return out
}
