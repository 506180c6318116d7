package dom

// Runtime helpers the generated module may import. Every reference to the
// runtime goes through Renderer.helper, which rejects names outside this set.
const (
	// Component
	SvelteComponent    = "SvelteComponent"
	SvelteComponentDev = "SvelteComponentDev"
	Init               = "init"
	SafeNotEqual       = "safe_not_equal"
	Noop               = "noop"
	Flush              = "flush"
	AppendStyles       = "append_styles"
	ComponentSubscribe = "component_subscribe"
	SetStoreValue      = "set_store_value"
	BindingCallbacks   = "binding_callbacks"
	Bind               = "bind"
	AddFlushCallback   = "add_flush_callback"
	AddRenderCallback  = "add_render_callback"
	Bubble             = "bubble"
	RunAll             = "run_all"
	IsFunction         = "is_function"
	ActionDestroyer    = "action_destroyer"
	ToNumber           = "to_number"
	Once               = "once"

	// DOM
	Element          = "element"
	SvgElement       = "svg_element"
	Text             = "text"
	Space            = "space"
	Empty            = "empty"
	Append           = "append"
	AppendHydration  = "append_hydration"
	Insert           = "insert"
	InsertHydration  = "insert_hydration"
	Detach           = "detach"
	Attr             = "attr"
	SetData          = "set_data"
	SetInputValue    = "set_input_value"
	SetStyle         = "set_style"
	ToggleClass      = "toggle_class"
	SelectOption     = "select_option"
	SelectValue      = "select_value"
	Listen           = "listen"
	PreventDefault   = "prevent_default"
	StopPropagation  = "stop_propagation"
	Self             = "self"
	Trusted          = "trusted"
	HtmlTag          = "HtmlTag"
	HtmlTagHydration = "HtmlTagHydration"

	// Hydration
	Children        = "children"
	ClaimElement    = "claim_element"
	ClaimSvgElement = "claim_svg_element"
	ClaimText       = "claim_text"
	ClaimSpace      = "claim_space"
	ClaimHtmlTag    = "claim_html_tag"
	ClaimComponent  = "claim_component"

	// Blocks
	TransitionIn                  = "transition_in"
	TransitionOut                 = "transition_out"
	GroupOutros                   = "group_outros"
	CheckOutros                   = "check_outros"
	CreateInTransition            = "create_in_transition"
	CreateOutTransition           = "create_out_transition"
	CreateBidirectionalTransition = "create_bidirectional_transition"
	CreateAnimation               = "create_animation"
	FixPosition                   = "fix_position"
	DestroyEach                   = "destroy_each"
	UpdateKeyedEach               = "update_keyed_each"
	DestroyBlock                  = "destroy_block"
	OutroAndDestroyBlock          = "outro_and_destroy_block"
	FixAndDestroyBlock            = "fix_and_destroy_block"
	FixAndOutroAndDestroyBlock    = "fix_and_outro_and_destroy_block"
	ValidateEachArgument          = "validate_each_argument"
	ValidateEachKeys              = "validate_each_keys"
	HandlePromise                 = "handle_promise"
	UpdateAwaitBlockBranch        = "update_await_block_branch"

	// Nested components and slots
	CreateComponent      = "create_component"
	MountComponent       = "mount_component"
	DestroyComponent     = "destroy_component"
	CreateSlot           = "create_slot"
	UpdateSlotBase       = "update_slot_base"
	GetSlotChanges       = "get_slot_changes"
	GetAllDirtyFromScope = "get_all_dirty_from_scope"
)

var knownHelpers = map[string]bool{}

func init() {
	for _, name := range []string{
		SvelteComponent, SvelteComponentDev, Init, SafeNotEqual, Noop, Flush,
		AppendStyles, ComponentSubscribe, SetStoreValue, BindingCallbacks, Bind,
		AddFlushCallback, AddRenderCallback, Bubble, RunAll, IsFunction,
		ActionDestroyer, ToNumber, Once,
		Element, SvgElement, Text, Space, Empty, Append, AppendHydration, Insert,
		InsertHydration, Detach, Attr, SetData, SetInputValue, SetStyle,
		ToggleClass, SelectOption, SelectValue, Listen, PreventDefault,
		StopPropagation, Self, Trusted, HtmlTag, HtmlTagHydration,
		Children, ClaimElement, ClaimSvgElement, ClaimText, ClaimSpace,
		ClaimHtmlTag, ClaimComponent,
		TransitionIn, TransitionOut, GroupOutros, CheckOutros,
		CreateInTransition, CreateOutTransition, CreateBidirectionalTransition,
		CreateAnimation, FixPosition, DestroyEach, UpdateKeyedEach, DestroyBlock,
		OutroAndDestroyBlock, FixAndDestroyBlock, FixAndOutroAndDestroyBlock,
		ValidateEachArgument, ValidateEachKeys, HandlePromise,
		UpdateAwaitBlockBranch,
		CreateComponent, MountComponent, DestroyComponent, CreateSlot,
		UpdateSlotBase, GetSlotChanges, GetAllDirtyFromScope,
	} {
		knownHelpers[name] = true
	}
}

// IsHelper reports whether name is a runtime helper the generator knows.
func IsHelper(name string) bool {
	return knownHelpers[name]
}
