package resolverservice

import "github.com/sysverax/somerville-mobile-sub000/internal/domain"

// GroupForDisplay nests variant views under their parent service.
// Standalone views become singleton groups with a nil parent. Groups keep the
// order in which their first member appears in views. Values are not modified.
func GroupForDisplay(views []domain.ResolvedServiceView, parents map[string]domain.ServiceRecord) []domain.ServiceGroup {
	groups := make([]domain.ServiceGroup, 0, len(views))
	index := make(map[string]int)

	for _, v := range views {
		if v.GroupParentID == nil {
			groups = append(groups, domain.ServiceGroup{Items: []domain.ResolvedServiceView{v}})
			continue
		}

		pid := *v.GroupParentID
		if i, ok := index[pid]; ok {
			groups[i].Items = append(groups[i].Items, v)
			continue
		}

		var parent *domain.ServiceRecord
		if p, ok := parents[pid]; ok {
			parent = &p
		} else {
			parent = &domain.ServiceRecord{ID: pid}
		}
		index[pid] = len(groups)
		groups = append(groups, domain.ServiceGroup{Parent: parent, Items: []domain.ResolvedServiceView{v}})
	}
	return groups
}
