package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/tui/ui"
)

// Registration is the sign-up form as entered; the photo is a local path.
type Registration struct {
	Login     string
	Password  string
	Name      string
	Gender    string
	Age       string
	About     string
	Interests string
	PhotoPath string
}

// Input converts the form into an api.RegisterInput without the photo.
// A non-numeric age is reported like any other invalid field.
func (r Registration) Input() (api.RegisterInput, error) {
	age, err := strconv.Atoi(strings.TrimSpace(r.Age))
	if err != nil {
		return api.RegisterInput{}, &api.ValidationError{Field: "age", Reason: "must be a number"}
	}
	return api.RegisterInput{
		Login:     strings.TrimSpace(r.Login),
		Password:  r.Password,
		Name:      strings.TrimSpace(r.Name),
		Gender:    r.Gender,
		Age:       age,
		About:     strings.TrimSpace(r.About),
		Interests: api.ParseInterests(r.Interests),
	}, nil
}

// AuthView holds the login and registration forms.
type AuthView struct {
	*tview.Flex
	theme    *ui.Theme
	forms    *tview.Pages
	login    *tview.Form
	register *tview.Form
	message  *tview.TextView

	onLogin    func(login, password string)
	onRegister func(Registration)
}

// NewAuthView creates the sign-in screen.
func NewAuthView(theme *ui.Theme) *AuthView {
	av := &AuthView{
		theme:   theme,
		forms:   tview.NewPages(),
		message: tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
	}
	av.message.SetBackgroundColor(theme.BgColor)

	av.login = av.newForm(" Sign in ").
		AddInputField("Login", "", 32, nil, nil).
		AddPasswordField("Password", "", 32, '*', nil)
	av.login.
		AddButton("Sign in", func() {
			if av.onLogin != nil {
				av.onLogin(inputText(av.login, "Login"), inputText(av.login, "Password"))
			}
		}).
		AddButton("Create account", func() { av.ShowRegister() })

	av.register = av.newForm(" Create account ").
		AddInputField("Login", "", 32, nil, nil).
		AddPasswordField("Password", "", 32, '*', nil).
		AddInputField("Name", "", 32, nil, nil).
		AddDropDown("Gender", api.Genders, 0, nil).
		AddInputField("Age", "", 4, tview.InputFieldInteger, nil).
		AddInputField("About", "", 48, nil, nil).
		AddInputField("Interests", "", 48, nil, nil).
		AddInputField("Photo", "", 48, nil, nil)
	av.register.
		AddButton("Register", func() {
			if av.onRegister != nil {
				av.onRegister(av.registration())
			}
		}).
		AddButton("Back", func() { av.ShowLogin() })

	av.forms.AddPage("login", av.login, true, true)
	av.forms.AddPage("register", av.register, true, false)

	hint := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	hint.SetBackgroundColor(theme.BgColor)
	_, _ = fmt.Fprintf(hint, "[%s]Interests: %s. Photo is a path to an image file.[-]",
		colorHex(theme.MutedColor), strings.Join(api.Interests, ", "))

	av.Flex = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(av.forms, 0, 1, true).
			AddItem(av.message, 2, 0, false).
			AddItem(hint, 1, 0, false), 72, 0, true).
		AddItem(nil, 0, 1, false)
	av.SetBackgroundColor(theme.BgColor)
	return av
}

func (av *AuthView) newForm(title string) *tview.Form {
	f := tview.NewForm()
	f.SetBorder(true)
	f.SetTitle(title)
	f.SetBorderColor(av.theme.BorderColor)
	f.SetTitleColor(av.theme.TitleColor)
	f.SetBackgroundColor(av.theme.BgColor)
	f.SetFieldBackgroundColor(av.theme.FieldBgColor)
	f.SetFieldTextColor(av.theme.FgColor)
	f.SetLabelColor(av.theme.MenuKeyColor)
	f.SetButtonBackgroundColor(av.theme.BorderColor)
	f.SetButtonTextColor(av.theme.BgColor)
	return f
}

// Name implements ui.Component.
func (av *AuthView) Name() string { return "Sign in" }

// Hints implements ui.Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit", Action: true},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnLogin sets the sign-in callback.
func (av *AuthView) SetOnLogin(fn func(login, password string)) { av.onLogin = fn }

// SetOnRegister sets the registration callback.
func (av *AuthView) SetOnRegister(fn func(Registration)) { av.onRegister = fn }

// Focus returns the form that should take focus.
func (av *AuthView) Focus() tview.Primitive {
	if name, _ := av.forms.GetFrontPage(); name == "register" {
		return av.register
	}
	return av.login
}

// ShowLogin switches to the sign-in form.
func (av *AuthView) ShowLogin() {
	av.forms.SwitchToPage("login")
	av.ShowMessage("")
}

// ShowRegister switches to the registration form.
func (av *AuthView) ShowRegister() {
	av.forms.SwitchToPage("register")
	av.ShowMessage("")
}

// ShowMessage displays a neutral status line.
func (av *AuthView) ShowMessage(msg string) {
	av.message.Clear()
	_, _ = fmt.Fprint(av.message, tview.Escape(msg))
}

// ShowError displays why the last submission failed.
func (av *AuthView) ShowError(err error) {
	av.message.Clear()
	_, _ = fmt.Fprintf(av.message, "[%s]%s[-]", colorHex(av.theme.FlashErrColor), tview.Escape(api.UserMessage(err)))
}

// Reset empties both forms, e.g. after logout.
func (av *AuthView) Reset() {
	for _, f := range []*tview.Form{av.login, av.register} {
		for i := 0; i < f.GetFormItemCount(); i++ {
			if in, ok := f.GetFormItem(i).(*tview.InputField); ok {
				in.SetText("")
			}
		}
	}
	av.ShowLogin()
}

func (av *AuthView) registration() Registration {
	_, gender := av.register.GetFormItemByLabel("Gender").(*tview.DropDown).GetCurrentOption()
	return Registration{
		Login:     inputText(av.register, "Login"),
		Password:  inputText(av.register, "Password"),
		Name:      inputText(av.register, "Name"),
		Gender:    gender,
		Age:       inputText(av.register, "Age"),
		About:     inputText(av.register, "About"),
		Interests: inputText(av.register, "Interests"),
		PhotoPath: strings.TrimSpace(inputText(av.register, "Photo")),
	}
}

func inputText(f *tview.Form, label string) string {
	if in, ok := f.GetFormItemByLabel(label).(*tview.InputField); ok {
		return in.GetText()
	}
	return ""
}
