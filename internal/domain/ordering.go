package domain

import "strings"

// GroupKey identifies one sibling group by its parent id; the empty key is the top level.
type GroupKey string

// TopLevelGroup is the group of tasks without a parent.
const TopLevelGroup GroupKey = ""

// ParentID returns the parent id shared by members of the group.
func (g GroupKey) ParentID() string {
	return string(g)
}

// String renders the group for logs.
func (g GroupKey) String() string {
	if g == TopLevelGroup {
		return "<top-level>"
	}
	return string(g)
}

// groupFilterKind tags the supported group filters.
type groupFilterKind uint8

const (
	filterTopLevel groupFilterKind = iota
	filterChildrenOf
)

// GroupFilter scopes a listing to exactly one sibling group.
type GroupFilter struct {
	kind     groupFilterKind
	parentID string
}

// TopLevel selects tasks with no parent.
func TopLevel() GroupFilter {
	return GroupFilter{kind: filterTopLevel}
}

// ChildrenOf selects direct children of parentID. An empty id selects the top level.
func ChildrenOf(parentID string) GroupFilter {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return TopLevel()
	}
	return GroupFilter{kind: filterChildrenOf, parentID: parentID}
}

// FilterForGroup returns the filter matching one group key.
func FilterForGroup(group GroupKey) GroupFilter {
	return ChildrenOf(string(group))
}

// Group returns the sibling group selected by the filter.
func (f GroupFilter) Group() GroupKey {
	if f.kind == filterChildrenOf {
		return GroupKey(f.parentID)
	}
	return TopLevelGroup
}

// IsTopLevel reports whether the filter selects the top level.
func (f GroupFilter) IsTopLevel() bool {
	return f.kind == filterTopLevel
}

// SortKey enumerates supported list orderings.
type SortKey string

// Supported sort keys.
const (
	SortSummary         SortKey = "summary"
	SortSummaryDesc     SortKey = "summary_desc"
	SortDescription     SortKey = "description"
	SortDescriptionDesc SortKey = "description_desc"
	SortDueDate         SortKey = "dueDate"
	SortDueDateDesc     SortKey = "dueDate_desc"
	SortPriority        SortKey = "priority"
	SortPriorityDesc    SortKey = "priority_desc"
	SortStatus          SortKey = "status"
	SortStatusDesc      SortKey = "status_desc"
	SortCreateDate      SortKey = "createDate"
	SortCreateDateDesc  SortKey = "createDate_desc"
	SortPosition        SortKey = "position"
	SortPositionDesc    SortKey = "position_desc"
)

var sortKeys = []SortKey{
	SortSummary, SortSummaryDesc,
	SortDescription, SortDescriptionDesc,
	SortDueDate, SortDueDateDesc,
	SortPriority, SortPriorityDesc,
	SortStatus, SortStatusDesc,
	SortCreateDate, SortCreateDateDesc,
	SortPosition, SortPositionDesc,
}

// SortKeys returns every supported sort key.
func SortKeys() []SortKey {
	return append([]SortKey(nil), sortKeys...)
}

// ParseSortKey maps raw input to a sort key; unknown values fall back to position.
func ParseSortKey(raw string) SortKey {
	raw = strings.TrimSpace(raw)
	for _, key := range sortKeys {
		if string(key) == raw {
			return key
		}
	}
	return SortPosition
}

// Field returns the attribute name the key orders by.
func (k SortKey) Field() string {
	return strings.TrimSuffix(string(ParseSortKey(string(k))), "_desc")
}

// Descending reports whether the key orders in descending direction.
func (k SortKey) Descending() bool {
	return strings.HasSuffix(string(ParseSortKey(string(k))), "_desc")
}

// IsPosition reports whether the key orders by position alone.
func (k SortKey) IsPosition() bool {
	return k.Field() == string(SortPosition)
}
