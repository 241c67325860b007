package app

// Key binding constants used in handleKey.
const (
	KeyQuit       = "q"
	KeyQuitUpper  = "Q"
	KeyCtrlC      = "ctrl+c"
	KeySpace      = " "
	KeyTab        = "tab"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyPgUp       = "pgup"
	KeyPgDown     = "pgdown"
	KeyJ          = "j"
	KeyK          = "k"
	KeyEnter      = "enter"
	KeyFollow     = "f"
	KeyDownload   = "d"
	KeyNewSession = "n"
	KeyRefresh    = "r"
)
