package entity

// ProximityLevel describes how close two members live, closest first.
type ProximityLevel string

const (
	ProximitySameBuilding ProximityLevel = "same_building"
	ProximitySameEstate   ProximityLevel = "same_estate"
	ProximityNearbyEstate ProximityLevel = "nearby_estate"
	ProximitySameArea     ProximityLevel = "same_area"
	ProximityNone         ProximityLevel = "none"
)

// NearbyFunc reports whether two distinct estates are adjacent.
type NearbyFunc func(estateA, estateB string) bool

// Proximity returns the closest level that applies to a and b. nearby may be
// nil when estate adjacency is unknown.
func Proximity(a, b *Profile, nearby NearbyFunc) ProximityLevel {
	if a == nil || b == nil {
		return ProximityNone
	}
	la, lb := a.Location, b.Location
	sameEstate := la.EstateID != "" && la.EstateID == lb.EstateID
	switch {
	case sameEstate && la.BuildingID != "" && la.BuildingID == lb.BuildingID:
		return ProximitySameBuilding
	case sameEstate:
		return ProximitySameEstate
	case nearby != nil && la.EstateID != "" && lb.EstateID != "" && nearby(la.EstateID, lb.EstateID):
		return ProximityNearbyEstate
	case la.Area != "" && la.Area == lb.Area:
		return ProximitySameArea
	default:
		return ProximityNone
	}
}
