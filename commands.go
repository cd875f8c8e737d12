package applier

// Commands is the handle systems use to mutate app-level state.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// Quit stops the frame loop after the current frame completes.
func (cmd *Commands) Quit() {
	cmd.app.quit()
}
