package auth

// Stremio.
const (
	selEmail     = "#email"
	selPassword  = "#password"
	selSubmit    = `input[type="submit"]`
	selAccount   = "#my-account"
	selConnectTr = ".integrations-button.trakt-connect-button"
)

var signOutSelectors = []string{
	".logout-button",
	`a[href*="logout"]`,
	`button[title="Log out"]`,
	"#logout",
}

// Trakt.
const (
	signInPathMarker = "auth/signin"

	selTraktForm     = "form"
	selTraktLogin    = `input[name="user[login]"]`
	selTraktPassword = `input[name="user[password]"]`
)

var consentSelectors = []string{
	`input[name="commit"]`,
	`button[name="commit"]`,
	`input[type="submit"][value="Yes"]`,
	`button[type="submit"][value="Yes"]`,
	`#auth-form input[type="submit"]`,
}
