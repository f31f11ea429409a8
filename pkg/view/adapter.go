// Package view shapes result rows for the two directory layouts. It is
// pure presentation: the same row always maps to the same view model
// and no row is ever dropped or reordered here, filtering belongs to
// the criteria layer alone.
package view

import "github.com/alumninet/directory-finder/pkg/types"

// cardSkillLimit caps how many skill chips fit on a grid card.
const cardSkillLimit = 3

type GridCard struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	Headline       string   `json:"headline,omitempty"`
	Company        string   `json:"company,omitempty"`
	Location       string   `json:"location,omitempty"`
	AvatarUrl      string   `json:"avatarUrl,omitempty"`
	GraduationYear int      `json:"graduationYear,omitempty"`
	Verified       bool     `json:"verified,omitempty"`
	Mentor         bool     `json:"mentor,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	MoreSkills     int      `json:"moreSkills,omitempty"`
}

type ListRow struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role,omitempty"`
	Company        string `json:"company,omitempty"`
	Location       string `json:"location,omitempty"`
	GraduationYear int    `json:"graduationYear,omitempty"`
	Verified       bool   `json:"verified,omitempty"`
	Mentor         bool   `json:"mentor,omitempty"`
}

// QuickStats describes the rows it was computed from, which today is
// one page of results, not the whole filtered population.
type QuickStats struct {
	Profiles int `json:"profiles"`
	Verified int `json:"verified"`
	Mentors  int `json:"mentors"`
}

func GridCardFromProfile(p types.ProfileSummary) GridCard {
	card := GridCard{
		Id:       p.Id,
		Name:     p.Name,
		Verified: p.GetBool("verified"),
		Mentor:   p.GetBool("is_mentor"),
	}
	card.Headline, _ = p.GetString("headline")
	card.Company, _ = p.GetString("company")
	card.Location, _ = p.GetString("location")
	card.AvatarUrl, _ = p.GetString("avatar_url")
	card.GraduationYear, _ = p.GetInt("graduation_year")

	skills := p.GetStrings("skills")
	if len(skills) > cardSkillLimit {
		card.Skills = skills[:cardSkillLimit]
		card.MoreSkills = len(skills) - cardSkillLimit
	} else {
		card.Skills = skills
	}
	return card
}

func ListRowFromProfile(p types.ProfileSummary) ListRow {
	row := ListRow{
		Id:       p.Id,
		Name:     p.Name,
		Verified: p.GetBool("verified"),
		Mentor:   p.GetBool("is_mentor"),
	}
	row.Role, _ = p.GetString("job_role")
	row.Company, _ = p.GetString("company")
	row.Location, _ = p.GetString("location")
	row.GraduationYear, _ = p.GetInt("graduation_year")
	return row
}

func GridCards(rows []types.ProfileSummary) []GridCard {
	out := make([]GridCard, len(rows))
	for i, p := range rows {
		out[i] = GridCardFromProfile(p)
	}
	return out
}

func ListRows(rows []types.ProfileSummary) []ListRow {
	out := make([]ListRow, len(rows))
	for i, p := range rows {
		out[i] = ListRowFromProfile(p)
	}
	return out
}

func Stats(rows []types.ProfileSummary) QuickStats {
	stats := QuickStats{Profiles: len(rows)}
	for _, p := range rows {
		if p.GetBool("verified") {
			stats.Verified++
		}
		if p.GetBool("is_mentor") {
			stats.Mentors++
		}
	}
	return stats
}
