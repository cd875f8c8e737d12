package applier

import "testing"

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
}

type ResourceModule struct{}

func (ResourceModule) Install(app *App, commands *Commands) {
	commands.AddResources(NewMockResource1("from module"))
}

func TestAppBuilder_UseModule(t *testing.T) {
	builder := NewAppBuilder()
	mockModule := &MockModule{}
	builder.UseModule(mockModule)

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
}

func TestAppBuilder_BuildInstallsModules(t *testing.T) {
	mockModule := &MockModule{}
	app := NewAppBuilder().
		UseModule(mockModule, ResourceModule{}).
		Build()

	if !mockModule.installed {
		t.Errorf("Expected Build to install the module")
	}

	r := Resource[MockResource1](app)
	if r == nil || r.name != "from module" {
		t.Errorf("Expected the module's resource to be registered, got %v", r)
	}
}

func TestAppBuilder_DefaultStages(t *testing.T) {
	app := NewAppBuilder().Build()

	if len(app.stages) != 7 {
		t.Errorf("Expected 7 default stages, got %d", len(app.stages))
	}
	for _, stage := range app.stages {
		if _, ok := app.systems[stage.Name]; !ok {
			t.Errorf("Expected a system slot for stage %q", stage.Name)
		}
	}
}
