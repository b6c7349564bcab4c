package capture

// selectionOverlayScript draws the drag-selection UI in the page: a dimmed
// full-screen layer with a live selection box. The overlay removes itself
// on mouseup or Escape before notifying the bindings, so it is never part
// of the captured image.
const selectionOverlayScript = `(() => {
	if (document.getElementById('__capture-overlay')) {
		return;
	}

	const overlay = document.createElement('div');
	overlay.id = '__capture-overlay';
	overlay.style.cssText = [
		'position:fixed', 'inset:0', 'z-index:2147483647',
		'cursor:crosshair', 'background:rgba(0,0,0,0.15)',
		'user-select:none',
	].join(';');

	const box = document.createElement('div');
	box.style.cssText = [
		'position:fixed', 'display:none',
		'border:2px dashed #4f8ef7', 'background:rgba(79,142,247,0.12)',
	].join(';');
	overlay.appendChild(box);

	let startX = 0, startY = 0, dragging = false;

	const remove = () => {
		overlay.remove();
		document.removeEventListener('keydown', onKey, true);
	};

	const onKey = (e) => {
		if (e.key === 'Escape') {
			e.preventDefault();
			remove();
			window.__captureCancel();
		}
	};

	overlay.addEventListener('mousedown', (e) => {
		e.preventDefault();
		dragging = true;
		startX = e.clientX;
		startY = e.clientY;
		window.__captureMouseDown(e.clientX, e.clientY);
	});

	overlay.addEventListener('mousemove', (e) => {
		if (!dragging) return;
		const x = Math.min(startX, e.clientX);
		const y = Math.min(startY, e.clientY);
		box.style.display = 'block';
		box.style.left = x + 'px';
		box.style.top = y + 'px';
		box.style.width = Math.abs(e.clientX - startX) + 'px';
		box.style.height = Math.abs(e.clientY - startY) + 'px';
		window.__captureMouseMove(e.clientX, e.clientY);
	});

	overlay.addEventListener('mouseup', (e) => {
		if (!dragging) return;
		dragging = false;
		remove();
		window.__captureMouseUp(e.clientX, e.clientY);
	});

	document.addEventListener('keydown', onKey, true);
	document.body.appendChild(overlay);
})();`
