package views

import (
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/tui/ui"
)

// ProfileEdit is the profile form as entered.
type ProfileEdit struct {
	Name      string
	Gender    string
	Age       string
	About     string
	Interests string
	PhotoPath string
}

// Update converts the form into a full api.ProfileUpdate without the photo.
func (e ProfileEdit) Update() (api.ProfileUpdate, error) {
	age, err := strconv.Atoi(strings.TrimSpace(e.Age))
	if err != nil {
		return api.ProfileUpdate{}, &api.ValidationError{Field: "age", Reason: "must be a number"}
	}
	name := strings.TrimSpace(e.Name)
	about := strings.TrimSpace(e.About)
	interests := api.ParseInterests(e.Interests)
	if interests == nil {
		interests = []string{}
	}
	return api.ProfileUpdate{
		Name:      &name,
		Gender:    &e.Gender,
		Age:       &age,
		About:     &about,
		Interests: interests,
	}, nil
}

// ProfileView shows and edits the signed-in user's profile.
type ProfileView struct {
	*tview.Form
	theme    *ui.Theme
	onSave   func(ProfileEdit)
	onLogout func()
}

// NewProfileView creates the profile screen.
func NewProfileView(theme *ui.Theme) *ProfileView {
	f := tview.NewForm()
	f.SetBorder(true)
	f.SetTitle(" My profile ")
	f.SetBorderColor(theme.BorderColor)
	f.SetTitleColor(theme.TitleColor)
	f.SetBackgroundColor(theme.BgColor)
	f.SetFieldBackgroundColor(theme.FieldBgColor)
	f.SetFieldTextColor(theme.FgColor)
	f.SetLabelColor(theme.MenuKeyColor)
	f.SetButtonBackgroundColor(theme.BorderColor)
	f.SetButtonTextColor(theme.BgColor)

	pv := &ProfileView{Form: f, theme: theme}
	f.AddInputField("Name", "", 32, nil, nil).
		AddDropDown("Gender", api.Genders, 0, nil).
		AddInputField("Age", "", 4, tview.InputFieldInteger, nil).
		AddInputField("About", "", 48, nil, nil).
		AddInputField("Interests", "", 48, nil, nil).
		AddInputField("New photo", "", 48, nil, nil).
		AddTextView("Photo", "", 48, 1, true, false).
		AddButton("Save", func() {
			if pv.onSave != nil {
				pv.onSave(pv.edit())
			}
		}).
		AddButton("Log out", func() {
			if pv.onLogout != nil {
				pv.onLogout()
			}
		})
	return pv
}

// Name implements ui.Component.
func (pv *ProfileView) Name() string { return "Profile" }

// Hints implements ui.Component.
func (pv *ProfileView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Save / Log out", Action: true},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSave sets the save callback.
func (pv *ProfileView) SetOnSave(fn func(ProfileEdit)) { pv.onSave = fn }

// SetOnLogout sets the logout callback.
func (pv *ProfileView) SetOnLogout(fn func()) { pv.onLogout = fn }

// Update fills the form from p.
func (pv *ProfileView) Update(p *api.Profile) {
	setInput(pv.Form, "Name", p.Name)
	setInput(pv.Form, "Age", strconv.Itoa(p.Age))
	setInput(pv.Form, "About", p.About)
	setInput(pv.Form, "Interests", strings.Join(p.Interests, ", "))
	setInput(pv.Form, "New photo", "")
	for i, g := range api.Genders {
		if g == p.Gender {
			pv.GetFormItemByLabel("Gender").(*tview.DropDown).SetCurrentOption(i)
		}
	}
	photo := p.PhotoURL
	if photo == "" {
		photo = "-"
	}
	if tv, ok := pv.GetFormItemByLabel("Photo").(*tview.TextView); ok {
		tv.SetText(photo)
	}
}

func (pv *ProfileView) edit() ProfileEdit {
	_, gender := pv.GetFormItemByLabel("Gender").(*tview.DropDown).GetCurrentOption()
	return ProfileEdit{
		Name:      inputText(pv.Form, "Name"),
		Gender:    gender,
		Age:       inputText(pv.Form, "Age"),
		About:     inputText(pv.Form, "About"),
		Interests: inputText(pv.Form, "Interests"),
		PhotoPath: strings.TrimSpace(inputText(pv.Form, "New photo")),
	}
}

func setInput(f *tview.Form, label, text string) {
	if in, ok := f.GetFormItemByLabel(label).(*tview.InputField); ok {
		in.SetText(text)
	}
}
