package toolregistry

import (
	"context"
	"testing"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
	"github.com/stretchr/testify/require"
)

func echoBinding() Binding {
	return Binding{
		Name: "echo",
		Schema: ArgSchema{Fields: []Field{
			{Name: "message", Type: "string", Required: true},
		}},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, string, error) {
			return args["message"].(string), "", nil
		},
	}
}

func TestRegistryInvokeNormalizesCamelCaseArgs(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoBinding()))

	content, _, err := r.Invoke(context.Background(), "echo", map[string]interface{}{"Message": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", content)
}

func TestRegistryInvokeDropsUnknownKeys(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoBinding()))

	content, _, err := r.Invoke(context.Background(), "echo", map[string]interface{}{"message": "hi", "bogus": "x"})
	require.NoError(t, err)
	require.Equal(t, "hi", content)
}

func TestRegistryInvokeMissingRequiredFieldIsValidationFailure(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoBinding()))

	_, _, err := r.Invoke(context.Background(), "echo", map[string]interface{}{})
	require.ErrorIs(t, err, gatewayerrors.ErrToolValidationFailed)
}

func TestRegistryResolveIsCaseInsensitive(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoBinding()))

	binding, ok := r.Resolve("ECHO")
	require.True(t, ok)
	require.Equal(t, "echo", binding.Name)
}

func TestRegistrySubsetOnlyExposesNamedTools(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoBinding()))
	require.NoError(t, r.Register(currentTimeBinding()))

	sub := r.Subset([]string{"echo", "no-such-tool"})

	_, ok := sub.Resolve("echo")
	require.True(t, ok)
	_, ok = sub.Resolve("current_time")
	require.False(t, ok)
}

func TestRegistryInvokeUnknownToolReturnsNotFound(t *testing.T) {
	r := New()
	_, _, err := r.Invoke(context.Background(), "missing", nil)
	require.ErrorIs(t, err, gatewayerrors.ErrNotFound)
}

func greetBinding() Binding {
	return Binding{
		Name: "greet",
		Schema: ArgSchema{Fields: []Field{
			{Name: "name", Type: "string", Required: true},
			{Name: "greeting", Type: "string", Default: "hello"},
		}},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, string, error) {
			return args["greeting"].(string) + " " + args["name"].(string), "", nil
		},
	}
}

func TestRegistryInvokeFillsDefaultForAbsentOptionalField(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(greetBinding()))

	content, _, err := r.Invoke(context.Background(), "greet", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	require.Equal(t, "hello Ada", content)
}

func TestRegistryInvokeExplicitValueOverridesDefault(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(greetBinding()))

	content, _, err := r.Invoke(context.Background(), "greet", map[string]interface{}{"name": "Ada", "greeting": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi Ada", content)
}

func TestDeclarationsPreserveRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(currentTimeBinding()))
	require.NoError(t, r.Register(echoBinding()))
	require.NoError(t, r.Register(greetBinding()))

	decls := r.Declarations()

	require.Len(t, decls, 3)
	require.Equal(t, []string{"current_time", "echo", "greet"}, []string{decls[0].Name, decls[1].Name, decls[2].Name})
}

func TestBuiltinsRegisterAndInvoke(t *testing.T) {
	r := New()
	require.NoError(t, RegisterBuiltins(r))

	content, _, err := r.Invoke(context.Background(), "current_time", map[string]interface{}{})
	require.NoError(t, err)
	require.NotEmpty(t, content)

	content, _, err = r.Invoke(context.Background(), "calculator", map[string]interface{}{"expression": "2 + 3"})
	require.NoError(t, err)
	require.Equal(t, "5", content)
}
