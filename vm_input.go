// vm_input.go - Player input to script variables

package main

// UpdateInput polls the platform and publishes the directions and action
// button into the hero variables. On the password screen the last typed
// character is handed to the script upper-cased.
func (vm *VM) UpdateInput() {
	vm.platform.ProcessEvents()
	input := vm.platform.Input()

	if vm.res.CurrentPart() == PartLast {
		c := input.LastChar
		if c == 8 || c == 0 || (c >= 'a' && c <= 'z') {
			vm.Vars[varLastKeyChar] = int16(c &^ 0x20)
			input.LastChar = 0
		}
	}

	var lr, ud, m int16
	if input.DirMask&DirRight != 0 {
		lr = 1
		m |= 1
	}
	if input.DirMask&DirLeft != 0 {
		lr = -1
		m |= 2
	}
	if input.DirMask&DirDown != 0 {
		ud = 1
		m |= 4
	}

	vm.Vars[varHeroUpDown] = ud
	if input.DirMask&DirUp != 0 {
		vm.Vars[varHeroUpDown] = -1
		ud = -1
		m |= 8
	}

	vm.Vars[varHeroJumpDown] = ud
	vm.Vars[varHeroLeftRight] = lr
	vm.Vars[varHeroPosMask] = m

	var button int16
	if input.Button {
		button = 1
		m |= 0x80
	}
	vm.Vars[varHeroAction] = button
	vm.Vars[varHeroActionMask] = m
}
