package internal

// StatKeys are the hero power stats, in display order.
var StatKeys = []string{"combat", "durability", "intelligence", "power", "speed", "strength"}

// UserStatNames are the rolled stats stored on a user profile.
var UserStatNames = []string{"Intelligence", "Strength", "Speed", "Durability", "Power", "Combat"}

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	SortByName = "name"

	Unaffiliated = "Unaffiliated"
)

type Hero struct {
	APIID           int            `json:"apiId"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug,omitempty"`
	FullName        string         `json:"fullName,omitempty"`
	Publisher       string         `json:"publisher,omitempty"`
	Alignment       string         `json:"alignment,omitempty"`
	PowerStats      map[string]int `json:"powerstats"`
	RawAffiliations []string       `json:"rawAffiliations,omitempty"`
	Teams           []string       `json:"teams"`
	ImageURL        string         `json:"imageUrl,omitempty"`
	RawJSON         string         `json:"-"`
}

// Stat returns the named power stat and whether it is known.
func (h Hero) Stat(key string) (int, bool) {
	v, ok := h.PowerStats[key]
	return v, ok
}

type TeamGroup struct {
	Team   string `json:"team"`
	Heroes []Hero `json:"heroes"`
}

type HeroNote struct {
	ID          string `json:"id"`
	UID         string `json:"uid"`
	HeroAPIID   string `json:"heroApiId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type UserProfile struct {
	UID       string         `json:"uid"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	HeroName  string         `json:"heroName"`
	Bio       string         `json:"bio"`
	Stats     map[string]int `json:"stats"`
	CreatedAt string         `json:"createdAt"`
}

func (u UserProfile) TotalStats() int {
	total := 0
	for _, v := range u.Stats {
		total += v
	}
	return total
}

type LeaderboardEntry struct {
	Rank       int         `json:"rank"`
	User       UserProfile `json:"user"`
	TotalStats int         `json:"totalStats"`
}
