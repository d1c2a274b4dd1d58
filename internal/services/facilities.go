package services

import "meeting-placement-service/internal/domain"

// NormalizeFacilities expands the user's facility selection into the set of
// room tags that satisfy it:
//
//	none selected -> every tag
//	one selected  -> that tag or AV/VC
//	both selected -> AV/VC only
func NormalizeFacilities(selected []domain.Facility) []domain.Facility {
	uniq := make([]domain.Facility, 0, len(selected))
	for _, f := range selected {
		if f == domain.FacilityAVVC || f == domain.FacilityNone {
			continue
		}
		dup := false
		for _, u := range uniq {
			if u == f {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, f)
		}
	}

	switch len(uniq) {
	case 0:
		if len(selected) > 0 {
			// AV/VC or N/A chosen explicitly.
			return explicitSelection(selected)
		}
		return []domain.Facility{
			domain.FacilityNone,
			domain.FacilityAV,
			domain.FacilityVC,
			domain.FacilityAVVC,
		}
	case 1:
		return []domain.Facility{uniq[0], domain.FacilityAVVC}
	default:
		return []domain.Facility{domain.FacilityAVVC}
	}
}

func explicitSelection(selected []domain.Facility) []domain.Facility {
	for _, f := range selected {
		if f == domain.FacilityAVVC {
			return []domain.Facility{domain.FacilityAVVC}
		}
	}
	return []domain.Facility{
		domain.FacilityNone,
		domain.FacilityAV,
		domain.FacilityVC,
		domain.FacilityAVVC,
	}
}

// RemoteFacilities is the filter forced on searches whose participants
// span several cities.
func RemoteFacilities() []domain.Facility {
	return []domain.Facility{domain.FacilityAVVC}
}
