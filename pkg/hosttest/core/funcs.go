package core

type funcCase struct {
	name string
	f    TestCaseFunction
}

// Func returns a synchronous case running f.
func Func(name string, f TestCaseFunction) TestCase {
	return &funcCase{name: name, f: f}
}

func (c *funcCase) Name() string {
	return c.name
}

func (c *funcCase) Run(ctx CaseContext) error {
	return c.f(ctx)
}

type deferredFuncCase struct {
	name  string
	begin DeferredCaseFunction
}

// DeferredFunc returns a deferrable case. begin receives the completion it
// must resolve, now or from a later host callback.
func DeferredFunc(name string, begin DeferredCaseFunction) DeferrableCase {
	return &deferredFuncCase{name: name, begin: begin}
}

func (c *deferredFuncCase) Name() string {
	return c.name
}

func (c *deferredFuncCase) Begin(ctx CaseContext) *Completion {
	completion := NewCompletion()
	c.begin(ctx, completion)
	return completion
}
