package app

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/auth"
)

var (
	userFlagEmail    string
	userFlagPassword string
	userFlagAccept   bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage your account and guest mode",
	Long: `Sign up or log in to keep your history in your account. The issued
token is saved under the data directory and used by every command until
you log out. Without an account, smilecoach runs in guest mode with a
limited number of sessions per device.

Examples:
  smilecoach user signup --email me@example.com
  smilecoach user login --email me@example.com
  smilecoach user guest --accept
  smilecoach user whoami`,
}

var userSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runUserAuth(cmd, true) },
}

var userLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the token",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runUserAuth(cmd, false) },
}

var userLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved token",
	Args:  cobra.NoArgs,
	RunE:  runUserLogout,
}

var userWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current identity",
	Args:  cobra.NoArgs,
	RunE:  runUserWhoami,
}

var userGuestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Show or accept guest mode for this device",
	Args:  cobra.NoArgs,
	RunE:  runUserGuest,
}

func init() {
	for _, c := range []*cobra.Command{userSignupCmd, userLoginCmd} {
		c.Flags().StringVar(&userFlagEmail, "email", "", "Account email")
		c.Flags().StringVar(&userFlagPassword, "password", "", "Account password (default: read from stdin)")
		_ = c.MarkFlagRequired("email")
	}
	userGuestCmd.Flags().BoolVar(&userFlagAccept, "accept", false, "Accept guest mode")
	userCmd.AddCommand(userSignupCmd, userLoginCmd, userLogoutCmd, userWhoamiCmd, userGuestCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAuth(cmd *cobra.Command, signup bool) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.auth == nil {
		return errors.New("accounts are disabled: set server.jwt_secret or SMILECOACH_SERVER_JWT_SECRET")
	}
	password := userFlagPassword
	if password == "" {
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	var tok *auth.Token
	if signup {
		tok, err = rt.auth.Signup(cmd.Context(), userFlagEmail, password)
	} else {
		tok, err = rt.auth.Login(cmd.Context(), userFlagEmail, password)
	}
	if err != nil {
		return err
	}
	if err := rt.saveToken(tok.Token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	if flagJSON {
		return printJSON(tok)
	}
	fmt.Printf("Logged in as %s (token valid until %s)\n", userFlagEmail, tok.ExpiresAt.Local().Format("2006-01-02"))
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runUserLogout(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.forgetToken(); err != nil {
		return err
	}
	fmt.Println("Logged out. Commands now run in guest mode.")
	return nil
}

func runUserWhoami(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(id)
	}
	if id.SignedIn() {
		fmt.Printf("user %s (device %s)\n", id.UserID, id.DeviceID)
	} else {
		fmt.Printf("guest device %s\n", id.DeviceID)
	}
	return nil
}

type guestStatus struct {
	DeviceID  string `json:"device_id"`
	Accepted  bool   `json:"accepted"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

func runUserGuest(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	device, err := rt.deviceID()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if userFlagAccept {
		if err := rt.local.AcceptGuestMode(ctx, device); err != nil {
			return err
		}
	}
	accepted, err := rt.local.GuestAccepted(ctx, device)
	if err != nil {
		return err
	}
	q := rt.local.Quota(device, rt.cfg.Guest.SessionLimit)
	left, err := q.Remaining(ctx)
	if err != nil {
		return err
	}

	st := guestStatus{DeviceID: device, Accepted: accepted, Limit: q.Limit(), Remaining: left}
	if flagJSON {
		return printJSON(st)
	}
	state := "not accepted (run with --accept)"
	if accepted {
		state = "accepted"
	}
	fmt.Printf("Guest mode %s: %d of %d sessions left on device %s\n", state, st.Remaining, st.Limit, device)
	return nil
}
