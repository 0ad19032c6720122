// Package profile holds the researcher profile shown on the landing section.
package profile

// Profile is static researcher information.
type Profile struct {
	Name         string `json:"name" yaml:"name"`
	Field        string `json:"field" yaml:"field"`
	Institution  string `json:"institution" yaml:"institution"`
	ImageURL     string `json:"imageUrl" yaml:"image_url"`
	ImageCaption string `json:"imageCaption" yaml:"image_caption"`
	Email        string `json:"email" yaml:"email"`
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{
		Name:         "Dr. Jane Doe",
		Field:        "Astrophysics",
		Institution:  "University of Science",
		ImageURL:     "https://cdn.pixabay.com/photo/2015/04/23/22/00/tree-736885_1280.jpg",
		ImageCaption: "Nature (Pixabay)",
		Email:        "jane.doe@example.com",
	}
}

// Merge fills empty fields of p from Default.
func (p Profile) Merge() Profile {
	d := Default()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.Field == "" {
		p.Field = d.Field
	}
	if p.Institution == "" {
		p.Institution = d.Institution
	}
	if p.ImageURL == "" {
		p.ImageURL = d.ImageURL
	}
	if p.ImageCaption == "" {
		p.ImageCaption = d.ImageCaption
	}
	if p.Email == "" {
		p.Email = d.Email
	}
	return p
}
