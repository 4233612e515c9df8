package component

// SwapScript replaces the markup between <!--vango:ID--> and
// <!--/vango:ID--> with the content of each vango-fragment for ID, in
// document order. A fragment is swapped once a following node proves it
// fully parsed, or at DOMContentLoaded.
const SwapScript = `<style>vango-fragment{display:none}</style>` +
	`<script>(function(){` +
	`function swap(f){` +
	`var id=f.getAttribute("component-id"),s=null,e=null,n,` +
	`w=document.createTreeWalker(document.documentElement,128);` +
	`while((n=w.nextNode())){` +
	`if(n.data==="vango:"+id){s=n}else if(s&&n.data==="/vango:"+id){e=n;break}}` +
	`if(s&&e&&s.parentNode===e.parentNode){` +
	`while(s.nextSibling&&s.nextSibling!==e){s.parentNode.removeChild(s.nextSibling)}` +
	`var t=document.createElement("template");t.innerHTML=f.innerHTML;` +
	`e.parentNode.insertBefore(t.content,e)}` +
	`f.parentNode.removeChild(f)}` +
	`function flush(all){` +
	`var fs=document.querySelectorAll("vango-fragment");` +
	`for(var i=0;i<fs.length;i++){if(all||fs[i].nextSibling){swap(fs[i])}}}` +
	`new MutationObserver(function(){flush(false)})` +
	`.observe(document.documentElement,{childList:true,subtree:true});` +
	`document.addEventListener("DOMContentLoaded",function(){flush(true)})` +
	`})();</script>`
